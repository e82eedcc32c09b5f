package main

import "shopanalyst/cmd"

func main() {
	cmd.Execute()
}
