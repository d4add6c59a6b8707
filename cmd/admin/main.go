package main

import "github.com/solace-health/therapy/cmd/admin/command"

func main() {
	command.Execute()
}
