package main

import "github.com/frahmantamala/freelance-payments/cmd"

func main() {
	cmd.Execute()
}
