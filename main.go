package main

import (
	"os"

	"github.com/Vector35/yasm-build/internal/yasmbuild"
)

func main() {
	os.Exit(yasmbuild.Main())
}
