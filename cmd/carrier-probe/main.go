package main

import "carrier-probe/cmd/carrier-probe/cmd"

func main() {
	cmd.Execute()
}
