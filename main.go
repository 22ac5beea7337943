package main

import "github.com/mcvu-symposium/ms-go-registration/cmd"

func main() {
	cmd.Execute()
}
