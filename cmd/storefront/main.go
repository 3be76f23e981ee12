package main

import "github.com/marshallshelly/storefront/cmd/storefront/commands"

func main() {
	commands.Execute()
}
