// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jac18281828/checksmix/pkg/mmixal"
	"github.com/jac18281828/checksmix/pkg/mmo"
)

var helpvar bool
var debugvar bool
var outvar string

const usage = "mmixas [-debug] [-out outfile] filename [outfile]"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false,
		"Writes a debug symbol table alongside the output, with extension '.mmodb'")
	flag.StringVar(&outvar, "out", "", "Specifies a precise name for the output file")
	flag.Parse()
}

func mmixas() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var infile string
	var input io.ReadSeeker

	if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin
		log.SetPrefix(colorize("<stdin>: ", isTerminal(os.Stderr)))
		if outvar == "" {
			outvar = "out.mmo"
		}
	} else {
		if len(args) != 1 && len(args) != 2 {
			log.Println(usage)
			return 1
		}

		file, err := os.Open(args[0])
		if err != nil {
			log.Println(err)
			return 1
		}
		defer file.Close()

		filename := filepath.Base(file.Name())
		if stat, err := file.Stat(); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid MMIXAL source file", filename)
			return 1
		}

		input = file
		infile = file.Name()
		log.SetPrefix(colorize(filename+": ", isTerminal(os.Stderr)))

		if outvar == "" && len(args) == 2 {
			outvar = args[1]
		}
		if outvar == "" {
			outvar = strings.ReplaceAll(filename, filepath.Ext(filename), ".mmo")
		}
	}

	as := mmixal.NewAssembler()
	prog, errs := as.Assemble(input)

	if len(errs) > 0 {
		reportErrors(errs, input)
		return 1
	}

	out, err := os.Create(outvar)
	if err != nil {
		log.Println("error creating output file")
		log.Println(err)
		return 1
	}
	defer out.Close()

	if err := mmo.Write(out, prog); err != nil {
		log.Println("error writing output file")
		log.Println(err)
		return 1
	}

	if debugvar {
		dbgPath := filepath.Dir(outvar) + "/" + strings.ReplaceAll(
			filepath.Base(outvar), filepath.Ext(outvar), ".mmodb",
		)
		dbgFile, err := os.Create(dbgPath)
		if err != nil {
			log.Println("error creating symbol table")
			log.Println(err)
			return 1
		}
		defer dbgFile.Close()

		source := infile
		if source != "" {
			if abs, err := filepath.Abs(infile); err == nil {
				source = abs
			}
		}
		if err := mmo.WriteDebug(dbgFile, source, prog); err != nil {
			log.Println("error writing symbol table")
			log.Println(err)
			return 1
		}
	}

	return 0
}

func reportErrors(errs []mmixal.TokenError, input io.ReadSeeker) {
	if input == os.Stdin {
		for _, err := range errs {
			log.Println(err)
		}
		return
	}

	for _, err := range errs {
		cursor := err.GetPosition()
		if _, serr := input.Seek(cursor.LineByte, io.SeekStart); serr != nil {
			log.Println(err)
			continue
		}
		line, _ := bufio.NewReader(input).ReadString('\n')
		line = strings.TrimSuffix(line, "\n")

		pad := int(cursor.Byte-cursor.LineByte) + 1
		marker := strings.Repeat("~", max(int(cursor.Size)-1, 0))
		underline := fmt.Sprintf("%*s%s", pad, "", marker+"^")

		log.Printf("%s\n%s\n%s", err, line, colorize(underline, isTerminal(os.Stderr)))
	}
}

// colorize wraps text in ANSI bold escapes when enabled is true. Every
// caller passes isTerminal(os.Stderr) as enabled, so a redirected log
// file never receives escape codes.
func colorize(s string, enabled bool) string {
	if !enabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// isTerminal reports whether f is connected to a terminal, queried with
// a termios ioctl so redirected output (a file or pipe) never receives
// escape codes.
func isTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), ioctlTermiosGet)
	return err == nil
}

func main() {
	os.Exit(mmixas())
}
