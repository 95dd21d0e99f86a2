package cpu

// barrelShift applies one of the four ARM shift types to value, returning
// the shifted result and the carry-out that feeds into the destination
// flag register when the data-processing instruction's S bit is set.
// amount==0 with shiftType==LSL is the plain "operand2 is just the
// register" case; a zero LSR/ASR amount that only occurs through the
// immediate-shift (not register-shift) encoding means "shift by 32",
// handled inline by each caller before it calls barrelShift.
func barrelShift(value uint32, amount uint32, shiftType ARMShiftType, carryIn bool) (uint32, bool) {
	switch shiftType {
	case LSL:
		return shiftLSL(value, amount, carryIn)
	case LSR:
		return shiftLSR(value, amount, carryIn)
	case ASR:
		return shiftASR(value, amount, carryIn)
	case ROR:
		return shiftROR(value, amount, carryIn)
	}
	return value, carryIn
}

func shiftLSL(value uint32, amount uint32, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carry := value&(1<<(32-amount)) != 0
		return value << amount, carry
	case amount == 32:
		return 0, value&1 != 0
	default:
		return 0, false
	}
}

func shiftLSR(value uint32, amount uint32, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carry := value&(1<<(amount-1)) != 0
		return value >> amount, carry
	case amount == 32:
		return 0, value&0x80000000 != 0
	default:
		return 0, false
	}
}

func shiftASR(value uint32, amount uint32, carryIn bool) (uint32, bool) {
	signed := int32(value)
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carry := value&(1<<(amount-1)) != 0
		return uint32(signed >> amount), carry
	default:
		if signed < 0 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
}

func shiftROR(value uint32, amount uint32, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	amount &= 31
	if amount == 0 {
		// ROR by 32 (or a multiple of it): value unchanged, carry = bit 31.
		return value, value&0x80000000 != 0
	}
	result := value>>amount | value<<(32-amount)
	carry := result&0x80000000 != 0
	return result, carry
}

// rrx is ROR-by-1-through-carry, the ARM encoding for "ROR #0" on a
// register-immediate shift.
func rrx(value uint32, carryIn bool) (uint32, bool) {
	carryOut := value&1 != 0
	result := value >> 1
	if carryIn {
		result |= 0x80000000
	}
	return result, carryOut
}
