// Command neurosim creates, runs, and inspects spiking-unit simulations.
package main

import "github.com/sarchlab/neurosim/neurosim/cmd"

func main() {
	cmd.Execute()
}
