package main

import "github.com/AyushKoirala03/Video-chatting/cmd"

func main() {
	cmd.Execute()
}
