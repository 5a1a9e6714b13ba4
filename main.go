package main

import "lovenest/cmd"

func main() {
	cmd.Run()
}
