package main

import "github.com/ldenti/ropebwt2/cmd/ropebwt/cmd"

func main() {
	cmd.Execute()
}
