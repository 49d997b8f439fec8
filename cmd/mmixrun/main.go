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
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jac18281828/checksmix/pkg/mmix"
	"github.com/jac18281828/checksmix/pkg/mmixal"
	"github.com/jac18281828/checksmix/pkg/mmo"
)

var helpvar bool
var tracevar bool

const usage = "mmixrun filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.Parse()

	switch strings.ToLower(os.Getenv("MMIX_LOG")) {
	case "trace", "info":
		tracevar = true
	}
}

// traceLog implements mmix.Tracer by writing decoded-instruction and
// TRAP lines to stderr, gated on the MMIX_LOG environment variable.
type traceLog struct{}

func (traceLog) Trace(format string, args ...any) {
	log.Printf(format, args...)
}

func mmixrun() int {
	if helpvar {
		fmt.Println(usage)
		return 0
	}

	args := flag.Args()
	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	file, err := os.Open(args[0])
	if err != nil {
		log.Println(err)
		return 1
	}
	defer file.Close()

	var prog *mmixal.Program
	if strings.EqualFold(filepath.Ext(args[0]), ".mmo") {
		prog, err = mmo.Read(file)
		if err != nil {
			log.Println(err)
			return 1
		}
	} else {
		as := mmixal.NewAssembler()
		var errs []mmixal.TokenError
		prog, errs = as.Assemble(file)
		if len(errs) > 0 {
			for _, e := range errs {
				log.Println(e)
			}
			return 1
		}
	}

	mc := mmix.NewMachine()
	mc.Devices = &mmix.DeviceHandler{Output: bufio.NewWriter(os.Stdout)}
	if tracevar {
		mc.Tracer = traceLog{}
	}

	for reg, v := range prog.GRegInit {
		mc.SetReg(reg, v)
	}
	for _, seg := range prog.Segments {
		mc.Memory.LoadBytes(seg.Addr, seg.Data)
	}
	mc.State.PC = prog.Entry

	for mc.Step() {
	}

	if w, ok := mc.Devices.Output.(*bufio.Writer); ok {
		w.Flush()
	}

	if mc.State.Run == mmix.Faulted {
		log.Println("machine faulted")
		return 1
	}

	return int(mc.State.ExitCode)
}

func main() {
	os.Exit(mmixrun())
}
