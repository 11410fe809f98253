package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ATSOTECK/adder/internal/config"
	"github.com/ATSOTECK/adder/internal/marshal"
	"github.com/ATSOTECK/adder/internal/runtime"
)

func main() {
	configPath := flag.String("config", "adder.yaml", "path to the limits config file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: adder [-config file] <module.pyc>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	limits, err := config.LoadIfPresent(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	code, _, err := marshal.LoadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	opts := []runtime.Option{
		runtime.WithRecursionLimit(limits.RecursionLimit),
		runtime.WithCheckInterval(limits.CheckInterval),
	}
	if limits.TimeoutMS > 0 {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(limits.TimeoutMS)*time.Millisecond)
		defer cancel()
		opts = append(opts, runtime.WithContext(ctx))
	}

	vm := runtime.NewVM(opts...)
	vm.Globals["__name__"] = "__main__"
	vm.Globals["__file__"] = flag.Arg(0)

	if _, err := vm.Execute(code); err != nil {
		var exc *runtime.PyException
		if errors.As(err, &exc) {
			fmt.Fprintf(os.Stderr, "Traceback (most recent call last):\n  File \"%s\"\n%s\n",
				code.Filename, exc.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		}
		os.Exit(1)
	}
}
