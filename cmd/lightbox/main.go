package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// A cancelled context means the user interrupted us, not a failure worth
	// repeating on stderr.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "lightbox:", err)
	}
	os.Exit(1)
}
