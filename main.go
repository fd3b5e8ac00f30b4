package main

import "github.com/faxsign/faxsign/cmd"

func main() {
	cmd.Execute()
}
