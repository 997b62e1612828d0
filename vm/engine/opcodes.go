// opcodes.go - Instruction encoding and opcode assignment for the CockpitVM
// execution engine.
//
// Instructions are fixed 32-bit records: opcode(u8), flags(u8), immediate(u16),
// little-endian on the wire and in memory. Opcodes 0x00-0x6F are reserved for
// the core ISA; anything outside that range (or inside it but unassigned) is
// InvalidOpcode at dispatch, before any handler runs.

package engine

// Instruction is one fixed-width bytecode record.
type Instruction struct {
	Opcode    uint8
	Flags     uint8
	Immediate uint16
}

// FlagSigned selects the signed i32 comparison variant for the unsigned
// comparison opcodes (0x20-0x25); the dedicated _SIGNED opcodes (0x26-0x2B)
// select it unconditionally regardless of this flag.
const FlagSigned uint8 = 1 << 0

// Core opcodes (0x00-0x09): stack machine primitives.
const (
	OpHalt = 0x00
	OpPush = 0x01 // push immediate (sign-extended i16 -> i32)
	OpPop  = 0x02
	OpAdd  = 0x03
	OpSub  = 0x04
	OpMul  = 0x05
	OpDiv  = 0x06
	OpMod  = 0x07
	OpCall = 0x08 // immediate = target instruction index
	OpRet  = 0x09
)

// HAL opcodes (0x10-0x1A): guest-visible hardware operations.
const (
	OpDigitalWrite     = 0x10 // pop value, pop pin
	OpDigitalRead      = 0x11 // pop pin, push value
	OpAnalogWrite      = 0x12 // pop value, pop pin
	OpAnalogRead       = 0x13 // pop pin, push value
	OpDelayNanoseconds = 0x14 // pop duration_ns
	OpButtonPressed    = 0x15 // pop pin, push 0/1
	OpButtonReleased   = 0x16 // pop pin, push 0/1
	OpPinMode          = 0x17 // pop mode, pop pin
	OpPrintf           = 0x18 // immediate = string_id; pop arg_count, then args
	OpMillis           = 0x19 // push millis()
	OpMicros           = 0x1A // push micros()
)

// Comparison opcodes (0x20-0x2B): unsigned default, dedicated signed variants.
const (
	OpEq  = 0x20
	OpNe  = 0x21
	OpLt  = 0x22
	OpGt  = 0x23
	OpLe  = 0x24
	OpGe  = 0x25
	OpEqS = 0x26
	OpNeS = 0x27
	OpLtS = 0x28
	OpGtS = 0x29
	OpLeS = 0x2A
	OpGeS = 0x2B
)

// Control flow opcodes (0x30-0x32): immediate is an instruction index.
const (
	OpJmp      = 0x30
	OpJmpTrue  = 0x31 // pop cond, non-zero = true
	OpJmpFalse = 0x32 // pop cond, zero = false
)

// Logical opcodes (0x40-0x42): C-boolean semantics, result normalised 0/1.
const (
	OpLogAnd = 0x40
	OpLogOr  = 0x41
	OpLogNot = 0x42
)

// Memory opcodes (0x50-0x56).
const (
	OpLoadGlobal  = 0x50 // immediate = global id
	OpStoreGlobal = 0x51 // immediate = global id, pop value
	OpLoadLocal   = 0x52 // immediate = index from top of stack
	OpStoreLocal  = 0x53 // immediate = index from top of stack, pop value
	OpLoadArray   = 0x54 // immediate = array id, pop index
	OpStoreArray  = 0x55 // immediate = array id, pop value then pop index
	OpCreateArray = 0x56 // immediate = array id, pop element count
)

// Bitwise opcodes (0x60-0x65).
const (
	OpBitAnd = 0x60
	OpBitOr  = 0x61
	OpBitXor = 0x62
	OpBitNot = 0x63
	OpShl    = 0x64
	OpShr    = 0x65
)

// MaxOpcode bounds the reserved core-ISA range; anything above it is
// rejected identically to an unassigned opcode inside the range.
const MaxOpcode = 0x6F
