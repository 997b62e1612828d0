// disasm.go - Mnemonic table and text disassembler, used by the
// `cockpitvm disasm` subcommand and debug tooling. Grounded on the
// teacher's debug_disasm_ie32.go opcode-name-table approach, generalized
// from fixed 8-byte IE32 instructions to CockpitVM's 4-byte encoding.

package engine

import "fmt"

var mnemonics = map[uint8]string{
	OpHalt: "HALT", OpPush: "PUSH", OpPop: "POP",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD",
	OpCall: "CALL", OpRet: "RET",

	OpPinMode: "PIN_MODE", OpDigitalWrite: "DIGITAL_WRITE", OpDigitalRead: "DIGITAL_READ",
	OpAnalogWrite: "ANALOG_WRITE", OpAnalogRead: "ANALOG_READ", OpDelayNanoseconds: "DELAY_NS",
	OpButtonPressed: "BUTTON_PRESSED", OpButtonReleased: "BUTTON_RELEASED",
	OpPrintf: "PRINTF", OpMillis: "MILLIS", OpMicros: "MICROS",

	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpGt: "GT", OpLe: "LE", OpGe: "GE",
	OpEqS: "EQ_S", OpNeS: "NE_S", OpLtS: "LT_S", OpGtS: "GT_S", OpLeS: "LE_S", OpGeS: "GE_S",

	OpJmp: "JMP", OpJmpTrue: "JMP_TRUE", OpJmpFalse: "JMP_FALSE",

	OpLogAnd: "AND", OpLogOr: "OR", OpLogNot: "NOT",

	OpLoadGlobal: "LOAD_GLOBAL", OpStoreGlobal: "STORE_GLOBAL",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpLoadArray: "LOAD_ARRAY", OpStoreArray: "STORE_ARRAY", OpCreateArray: "CREATE_ARRAY",

	OpBitAnd: "BAND", OpBitOr: "BOR", OpBitXor: "BXOR", OpBitNot: "BNOT",
	OpShl: "SHL", OpShr: "SHR",
}

// opcodesWithImmediateOperand lists the only opcodes whose Immediate field
// is a meaningful operand (vs. opcodes that take all their operands off
// the stack, where Immediate is unused and always zero).
var opcodesWithImmediateOperand = map[uint8]bool{
	OpPush: true, OpCall: true,
	OpJmp: true, OpJmpTrue: true, OpJmpFalse: true,
	OpLoadGlobal: true, OpStoreGlobal: true, OpLoadLocal: true, OpStoreLocal: true,
	OpLoadArray: true, OpStoreArray: true, OpCreateArray: true,
	OpPrintf: true,
}

// Disassemble renders one instruction as "NAME #imm" for opcodes whose
// immediate is a real operand, or plain "NAME" otherwise, falling back to a
// raw byte directive for opcodes outside the registered table.
func Disassemble(inst Instruction) string {
	name, ok := mnemonics[inst.Opcode]
	if !ok {
		return fmt.Sprintf("db 0x%02X", inst.Opcode)
	}
	if !opcodesWithImmediateOperand[inst.Opcode] {
		return name
	}
	if inst.Flags&FlagSigned != 0 {
		return fmt.Sprintf("%s.s #%d", name, inst.Immediate)
	}
	return fmt.Sprintf("%s #%d", name, inst.Immediate)
}

// DisassembleProgram renders an entire program, one line per instruction,
// prefixed with its index for use as a jump target reference.
func DisassembleProgram(program []Instruction) []string {
	lines := make([]string, len(program))
	for i, inst := range program {
		lines[i] = fmt.Sprintf("%4d: %s", i, Disassemble(inst))
	}
	return lines
}
