package main

import "github.com/viktsys/cryptostar/cmd"

func main() {
	cmd.Execute()
}
