package main

import "calibot/internal/app"

func main() {
	app.Main()
}
