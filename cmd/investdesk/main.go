// Command investdesk は投資プラットフォームのクライアント状態をデスクサーバーとCLIで提供する。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hitoshi/investdesk/internal/app"
)

func main() {
	streams := app.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	if err := app.Run(context.Background(), streams, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "investdesk: %v\n", err)
		os.Exit(1)
	}
}
