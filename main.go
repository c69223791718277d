package main

import "github.com/theirongolddev/clawmon/cmd"

func main() {
	cmd.Execute()
}
