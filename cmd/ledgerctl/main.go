// Command ledgerctl runs operator tasks against the invoice ledger database:
// accounting exports, on-demand overdue sweeps and schema bootstrap.
package main

func main() {
	Execute()
}
