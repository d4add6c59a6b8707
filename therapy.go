package main

import "github.com/solace-health/therapy/api"

func main() {
	api.MainLoop()
}
