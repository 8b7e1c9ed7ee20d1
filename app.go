package main

import "github.com/masmgr/pushnotify/cmd"

func main() {
	cmd.Run()
}
