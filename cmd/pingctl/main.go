package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/drivertrack/cmd/pingctl/app"
)

func main() {
	app.NewApp().Run()
}
