package main

import "github.com/goplus/magicsys/cmd/magicsys/internal"

func main() {
	internal.Execute()
}
