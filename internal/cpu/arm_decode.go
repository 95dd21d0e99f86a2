package cpu

// readRegARM reads a general register as ARM sees it: R15 reads as the
// address of the current instruction + 8, the classic 2-stage-pipeline
// lookahead. c.r[15] has already been advanced past the current
// instruction by the time this is called, so +4 more gets there.
func (c *CPU) readRegARM(reg uint8) uint32 {
	if reg == 15 {
		return c.r[15] + 4
	}
	return c.r[reg]
}

// writeRegARM writes a general register, flushing the pipeline and
// word-aligning when the destination is PC.
func (c *CPU) writeRegARM(reg uint8, value uint32) {
	if reg == 15 {
		c.r[15] = value &^ 3
		c.flushPipeline()
		return
	}
	c.r[reg] = value
}

// operand2 computes a data-processing instruction's second operand and the
// carry-out the barrel shifter produced (used only when S=1).
func (c *CPU) operand2ARM(instr uint32) (uint32, bool) {
	carryIn := c.cpsr&flagC != 0
	if instr&(1<<25) != 0 {
		imm := instr & 0xFF
		rot := (instr >> 8 & 0xF) * 2
		return shiftROR(imm, rot, carryIn)
	}

	rm := c.readRegARM(uint8(instr & 0xF))
	shiftType := ARMShiftType(instr >> 5 & 0x3)

	if instr&(1<<4) != 0 {
		rs := c.readRegARM(uint8(instr >> 8 & 0xF))
		amount := rs & 0xFF
		return barrelShift(rm, amount, shiftType, carryIn)
	}

	amount := instr >> 7 & 0x1F
	if amount == 0 {
		switch shiftType {
		case LSL:
			return rm, carryIn
		case LSR, ASR:
			amount = 32
		case ROR:
			return rrx(rm, carryIn)
		}
	}
	return barrelShift(rm, amount, shiftType, carryIn)
}

// stepARM fetches, decodes, and executes one ARM-state instruction.
func (c *CPU) stepARM() uint32 {
	addr := c.r[15]
	instr := c.bus.Read32(addr)
	c.r[15] = addr + 4
	cost := c.timing.Cost(addr, 4, true)

	if !c.checkCondition(ARMCondition(instr>>28&0xF)) {
		return cost
	}
	c.execARM(instr, addr)
	return cost
}

func (c *CPU) execARM(instr uint32, addr uint32) {
	switch instr >> 26 & 0x3 {
	case 0b00:
		c.execARMGroup0(instr, addr)
	case 0b01:
		c.execARMSingleTransfer(instr)
	case 0b10:
		if instr&(1<<25) != 0 {
			c.execARMBranch(instr, addr)
		} else {
			c.execARMBlockTransfer(instr, addr)
		}
	case 0b11:
		if instr&(1<<25) != 0 && instr>>24&0xF == 0xF {
			c.execARMSWI(instr)
		} else {
			c.enterException(ModeUndefined, vectorUndefined, 4)
		}
	}
}

func (c *CPU) execARMGroup0(instr uint32, addr uint32) {
	switch {
	case instr&0x0FC000F0 == 0x00000090:
		c.execARMMultiply(instr)
	case instr&0x0F8000F0 == 0x00800090:
		c.execARMMultiplyLong(instr)
	case instr&0x0FB00FF0 == 0x01000090:
		c.execARMSwap(instr)
	case instr&0x0E000090 == 0x00000090 && instr&0x60 != 0:
		c.execARMHalfwordTransfer(instr)
	case instr&0x0FFFFFF0 == 0x012FFF10:
		c.execARMBX(instr)
	case instr&0x0FBF0FFF == 0x010F0000:
		c.execARMMRS(instr)
	case instr&0x0DB0F000 == 0x0120F000:
		c.execARMMSR(instr)
	default:
		c.execARMDataProcessing(instr, addr)
	}
}

func (c *CPU) execARMDataProcessing(instr uint32, addr uint32) {
	op := ARMDataProcessingOperation(instr >> 21 & 0xF)
	s := instr&(1<<20) != 0
	rn := uint8(instr >> 16 & 0xF)
	rd := uint8(instr >> 12 & 0xF)

	op2, shiftCarry := c.operand2ARM(instr)
	rnVal := c.readRegARM(rn)

	var result uint32
	writesResult := true

	switch op {
	case OpAND:
		result = rnVal & op2
	case OpEOR:
		result = rnVal ^ op2
	case OpSUB:
		result = rnVal - op2
	case OpRSB:
		result = op2 - rnVal
	case OpADD:
		result = rnVal + op2
	case OpADC:
		result = rnVal + op2 + carryBit(c.cpsr)
	case OpSBC:
		result = rnVal - op2 + carryBit(c.cpsr) - 1
	case OpRSC:
		result = op2 - rnVal + carryBit(c.cpsr) - 1
	case OpTST:
		result = rnVal & op2
		writesResult = false
	case OpTEQ:
		result = rnVal ^ op2
		writesResult = false
	case OpCMP:
		result = rnVal - op2
		writesResult = false
	case OpCMN:
		result = rnVal + op2
		writesResult = false
	case OpORR:
		result = rnVal | op2
	case OpMOV:
		result = op2
	case OpBIC:
		result = rnVal &^ op2
	case OpMVN:
		result = ^op2
	}

	if writesResult {
		if rd == 15 && s {
			// MOVS/ADDS etc with Rd=PC: a privileged-mode return, restoring
			// CPSR from the current mode's SPSR.
			c.cpsr = c.spsr()
		}
		c.writeRegARM(rd, result)
	}

	if s && rd != 15 {
		c.setLogicalFlags(result, shiftCarry)
		switch op {
		case OpSUB, OpCMP:
			c.setFlagC(!borrowed(rnVal, op2))
			c.setFlagV(subOverflow(rnVal, op2, result))
		case OpRSB:
			c.setFlagC(!borrowed(op2, rnVal))
			c.setFlagV(subOverflow(op2, rnVal, result))
		case OpADD, OpCMN:
			c.setFlagC(uint64(rnVal)+uint64(op2) > 0xFFFFFFFF)
			c.setFlagV(addOverflow(rnVal, op2, result))
		case OpADC:
			sum := uint64(rnVal) + uint64(op2) + uint64(carryBit(c.cpsr))
			c.setFlagC(sum > 0xFFFFFFFF)
			c.setFlagV(addOverflow(rnVal, op2, result))
		case OpSBC:
			borrow := int64(rnVal) - int64(op2) - int64(1-carryBit(c.cpsr))
			c.setFlagC(borrow >= 0)
			c.setFlagV(subOverflow(rnVal, op2, result))
		case OpRSC:
			borrow := int64(op2) - int64(rnVal) - int64(1-carryBit(c.cpsr))
			c.setFlagC(borrow >= 0)
			c.setFlagV(subOverflow(op2, rnVal, result))
		}
	}
}

func carryBit(cpsr uint32) uint32 {
	if cpsr&flagC != 0 {
		return 1
	}
	return 0
}

func borrowed(a, b uint32) bool { return a < b }

func subOverflow(a, b, result uint32) bool {
	return (a^b)&(a^result)&0x80000000 != 0
}

func addOverflow(a, b, result uint32) bool {
	return ^(a^b)&(a^result)&0x80000000 != 0
}

func (c *CPU) setLogicalFlags(result uint32, carry bool) {
	c.setFlagN(result&0x80000000 != 0)
	c.setFlagZ(result == 0)
	c.setFlagC(carry)
}

func (c *CPU) setFlagN(v bool) { c.setFlag(flagN, v) }
func (c *CPU) setFlagZ(v bool) { c.setFlag(flagZ, v) }
func (c *CPU) setFlagC(v bool) { c.setFlag(flagC, v) }
func (c *CPU) setFlagV(v bool) { c.setFlag(flagV, v) }

func (c *CPU) setFlag(bit uint32, v bool) {
	if v {
		c.cpsr |= bit
	} else {
		c.cpsr &^= bit
	}
}

func (c *CPU) execARMMultiply(instr uint32) {
	rd := uint8(instr >> 16 & 0xF)
	rn := uint8(instr >> 12 & 0xF)
	rs := uint8(instr >> 8 & 0xF)
	rm := uint8(instr & 0xF)
	s := instr&(1<<20) != 0
	accumulate := instr&(1<<21) != 0

	result := c.r[rm] * c.r[rs]
	if accumulate {
		result += c.r[rn]
	}
	c.r[rd] = result
	if s {
		c.setFlagN(result&0x80000000 != 0)
		c.setFlagZ(result == 0)
	}
}

func (c *CPU) execARMMultiplyLong(instr uint32) {
	rdHi := uint8(instr >> 16 & 0xF)
	rdLo := uint8(instr >> 12 & 0xF)
	rs := uint8(instr >> 8 & 0xF)
	rm := uint8(instr & 0xF)
	s := instr&(1<<20) != 0
	accumulate := instr&(1<<21) != 0
	signed := instr&(1<<22) != 0

	var result uint64
	if signed {
		result = uint64(int64(int32(c.r[rm])) * int64(int32(c.r[rs])))
	} else {
		result = uint64(c.r[rm]) * uint64(c.r[rs])
	}
	if accumulate {
		result += uint64(c.r[rdHi])<<32 | uint64(c.r[rdLo])
	}
	c.r[rdLo] = uint32(result)
	c.r[rdHi] = uint32(result >> 32)
	if s {
		c.setFlagN(result&0x8000000000000000 != 0)
		c.setFlagZ(result == 0)
	}
}

func (c *CPU) execARMSwap(instr uint32) {
	rn := uint8(instr >> 16 & 0xF)
	rd := uint8(instr >> 12 & 0xF)
	rm := uint8(instr & 0xF)
	addr := c.r[rn]
	byteSwap := instr&(1<<22) != 0

	if byteSwap {
		old := c.bus.Read8(addr)
		c.bus.Write8(addr, uint8(c.r[rm]))
		c.r[rd] = uint32(old)
	} else {
		old := c.bus.Read32(addr)
		c.bus.Write32(addr, c.r[rm])
		c.r[rd] = old
	}
}

func (c *CPU) execARMHalfwordTransfer(instr uint32) {
	rn := uint8(instr >> 16 & 0xF)
	rd := uint8(instr >> 12 & 0xF)
	p := instr&(1<<24) != 0
	up := instr&(1<<23) != 0
	immOffset := instr&(1<<22) != 0
	writeback := instr&(1<<21) != 0
	load := instr&(1<<20) != 0
	sh := instr >> 5 & 0x3

	var offset uint32
	if immOffset {
		offset = (instr>>4&0xF0 | instr&0xF)
	} else {
		offset = c.r[instr&0xF]
	}

	base := c.readRegARM(rn)
	var addr uint32
	if up {
		addr = base + offset
	} else {
		addr = base - offset
	}
	effective := base
	if p {
		effective = addr
	}

	if load {
		var val uint32
		switch sh {
		case 0x1:
			val = uint32(c.bus.Read16(effective))
		case 0x2:
			val = uint32(int32(int8(c.bus.Read8(effective))))
		case 0x3:
			val = uint32(int32(int16(c.bus.Read16(effective))))
		}
		c.writeRegARM(rd, val)
	} else {
		c.bus.Write16(effective, uint16(c.readRegARM(rd)))
	}

	if writeback || !p {
		c.r[rn] = addr
	}
}

func (c *CPU) execARMMRS(instr uint32) {
	rd := uint8(instr >> 12 & 0xF)
	spsr := instr&(1<<22) != 0
	if spsr {
		c.r[rd] = c.spsr()
	} else {
		c.r[rd] = c.cpsr
	}
}

func (c *CPU) execARMMSR(instr uint32) {
	spsr := instr&(1<<22) != 0
	flagsOnly := instr&(1<<16) == 0

	var value uint32
	if instr&(1<<25) != 0 {
		imm := instr & 0xFF
		rot := (instr >> 8 & 0xF) * 2
		value, _ = shiftROR(imm, rot, false)
	} else {
		value = c.r[instr&0xF]
	}

	mask := uint32(0xFFFFFFFF)
	if flagsOnly {
		mask = 0xF0000000
	}
	value &= mask

	if spsr {
		cur := c.spsr()
		c.setSPSR(cur&^mask | value)
	} else {
		if !flagsOnly {
			c.SetCPSR(c.cpsr&^mask | value)
		} else {
			c.cpsr = c.cpsr&^mask | value
		}
	}
}

func (c *CPU) execARMBX(instr uint32) {
	rm := c.r[instr&0xF]
	if rm&1 != 0 {
		c.cpsr |= flagT
		c.r[15] = rm &^ 1
	} else {
		c.cpsr &^= flagT
		c.r[15] = rm &^ 3
	}
	c.flushPipeline()
}

func (c *CPU) singleTransferOffset(instr uint32) uint32 {
	if instr&(1<<25) == 0 {
		return instr & 0xFFF
	}
	rm := c.readRegARM(uint8(instr & 0xF))
	shiftType := ARMShiftType(instr >> 5 & 0x3)
	amount := instr >> 7 & 0x1F
	carryIn := c.cpsr&flagC != 0
	if amount == 0 {
		switch shiftType {
		case LSR, ASR:
			amount = 32
		case ROR:
			offset, _ := rrx(rm, carryIn)
			return offset
		}
	}
	offset, _ := barrelShift(rm, amount, shiftType, carryIn)
	return offset
}

func (c *CPU) execARMSingleTransfer(instr uint32) {
	p := instr&(1<<24) != 0
	up := instr&(1<<23) != 0
	byteTransfer := instr&(1<<22) != 0
	writeback := instr&(1<<21) != 0
	load := instr&(1<<20) != 0
	rn := uint8(instr >> 16 & 0xF)
	rd := uint8(instr >> 12 & 0xF)

	offset := c.singleTransferOffset(instr)

	base := c.readRegARM(rn)
	var addr uint32
	if up {
		addr = base + offset
	} else {
		addr = base - offset
	}
	effective := base
	if p {
		effective = addr
	}

	if load {
		var val uint32
		if byteTransfer {
			val = uint32(c.bus.Read8(effective))
		} else {
			val = c.bus.Read32(effective)
		}
		if rd == 15 {
			c.r[15] = val &^ 3
			c.flushPipeline()
		} else {
			c.r[rd] = val
		}
	} else {
		val := c.readRegARM(rd)
		if byteTransfer {
			c.bus.Write8(effective, uint8(val))
		} else {
			c.bus.Write32(effective, val)
		}
	}

	if (writeback || !p) && !(load && rd == rn) {
		c.r[rn] = addr
	}
}

func (c *CPU) execARMBlockTransfer(instr uint32, addr uint32) {
	p := instr&(1<<24) != 0
	up := instr&(1<<23) != 0
	userBank := instr&(1<<22) != 0
	writeback := instr&(1<<21) != 0
	load := instr&(1<<20) != 0
	rn := uint8(instr >> 16 & 0xF)
	list := uint16(instr & 0xFFFF)

	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<i) != 0 {
			count++
		}
	}
	if count == 0 {
		return
	}

	base := c.r[rn]
	var start uint32
	if up {
		start = base
		if p {
			start += 4
		}
	} else {
		start = base - uint32(count)*4
		if !p {
			start += 4
		}
	}

	cur := start
	for i := 0; i < 16; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		if load {
			val := c.bus.Read32(cur)
			if i == 15 {
				c.r[15] = val &^ 3
				c.flushPipeline()
				if userBank {
					c.cpsr = c.spsr()
				}
			} else {
				c.r[i] = val
			}
		} else {
			var val uint32
			if i == 15 {
				val = addr + 12
			} else {
				val = c.r[i]
			}
			c.bus.Write32(cur, val)
		}
		cur += 4
	}

	if writeback {
		if up {
			c.r[rn] = base + uint32(count)*4
		} else {
			c.r[rn] = base - uint32(count)*4
		}
	}
}

func (c *CPU) execARMBranch(instr uint32, addr uint32) {
	link := instr&(1<<24) != 0
	offset := instr & 0x00FFFFFF
	if offset&0x00800000 != 0 {
		offset |= 0xFF000000
	}
	target := (addr + 8) + (offset << 2)
	if link {
		c.r[14] = addr + 4
	}
	c.r[15] = target
	c.flushPipeline()
}

func (c *CPU) execARMSWI(instr uint32) {
	c.enterException(ModeSupervisor, vectorSWI, 4)
}
