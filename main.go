package main

import "tabular/internal/app"

func main() {
	app.Serve()
}
