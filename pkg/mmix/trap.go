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

package mmix

// execTrap dispatches a decoded TRAP instruction. The Y field names the
// service and the Z field carries the service's own argument (a file
// handle, for Fputs); the TRAP argument register by convention is $255.
func (mc *Machine) execTrap(insn Instruction) {
	switch uint64(insn.Y) {
	case TrapHalt:
		mc.State.Run = Halted
		mc.State.ExitCode = uint64(insn.Z)
	case TrapFputs:
		mc.doFputs()
	default:
		mc.tracef("unhandled TRAP service %d", insn.Y)
		mc.setEvent(EventI)
		mc.State.Run = Faulted
	}
}

// doFputs writes the NUL-terminated string starting at $255 to the
// machine's output sink, verbatim and without a trailing newline.
func (mc *Machine) doFputs() {
	if mc.Devices == nil || mc.Devices.Output == nil {
		return
	}
	addr := mc.GetReg(255)
	var out []byte
	for {
		b := mc.Memory.ReadByte(addr)
		if b == 0 {
			break
		}
		out = append(out, b)
		addr++
	}
	mc.Devices.Output.Write(out)
}
