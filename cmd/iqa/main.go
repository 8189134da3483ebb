// Command iqa computes PSNR and SSIM between images and frame sequences and
// writes per-step metric summaries.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
