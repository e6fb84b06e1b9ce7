package main

import "ovdlink/cmd/ovd-client/command"

func main() {
	command.Execute()
}
