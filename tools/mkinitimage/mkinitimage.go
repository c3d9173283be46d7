package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[mkinitimage] error: %s\n", err.Error())
	os.Exit(1)
}

func genInitImageFile(elfData []byte) string {
	var buf bytes.Buffer

	fmt.Fprint(&buf, "package user\n\n")
	fmt.Fprint(&buf, "func init() {\nInitELF = []byte{\n")
	for i, b := range elfData {
		if i != 0 && i%16 == 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "0x%02x, ", b)
	}
	fmt.Fprint(&buf, "\n}\n}\n")

	return buf.String()
}

func runTool() error {
	output := flag.String("out", "-", "a file to write the generated init image or - to output to STDOUT")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "mkinitimage: embed a prebuilt init ELF as a Go []byte literal\n\n")
		fmt.Fprint(os.Stderr, "Usage: mkinitimage [options] elf-file\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		exit(errors.New("missing init ELF file argument"))
	}

	elfData, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return err
	}

	genData := genInitImageFile(elfData)

	// Pretty-print generated file using go/printer, same as makelogo does.
	fSet := token.NewFileSet()
	astFile, err := parser.ParseFile(fSet, "", genData, parser.ParseComments)
	if err != nil {
		return err
	}

	switch *output {
	case "-":
		return printer.Fprint(os.Stdout, fSet, astFile)
	default:
		fOut, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer fOut.Close()

		return printer.Fprint(fOut, fSet, astFile)
	}
}

func main() {
	if err := runTool(); err != nil {
		exit(err)
	}
}
