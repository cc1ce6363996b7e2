package main

import "fakestore-offline/cmd/offlinectl/cmd"

func main() {
	cmd.Execute()
}
