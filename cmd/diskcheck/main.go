package main

import (
	"os"

	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	os.Exit(execute(newApp(), os.Args[1:]))
}
