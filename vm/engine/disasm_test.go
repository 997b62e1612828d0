package engine

import "testing"

func TestDisassembleKnownOpcodes(t *testing.T) {
	cases := []struct {
		inst Instruction
		want string
	}{
		{Instruction{Opcode: OpHalt}, "HALT"},
		{Instruction{Opcode: OpPush, Immediate: 7}, "PUSH #7"},
		{Instruction{Opcode: OpAdd}, "ADD"},
		{Instruction{Opcode: OpJmp, Immediate: 12}, "JMP #12"},
		{Instruction{Opcode: OpLtS, Flags: FlagSigned}, "LT_S"},
		{Instruction{Opcode: OpLoadGlobal, Immediate: 3}, "LOAD_GLOBAL #3"},
		{Instruction{Opcode: 0x6E}, "db 0x6E"},
	}
	for _, c := range cases {
		if got := Disassemble(c.inst); got != c.want {
			t.Errorf("Disassemble(%+v) = %q, want %q", c.inst, got, c.want)
		}
	}
}

func TestDisassembleProgramPrefixesIndex(t *testing.T) {
	lines := DisassembleProgram([]Instruction{
		{Opcode: OpPush, Immediate: 1},
		{Opcode: OpHalt},
	})
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "   0: PUSH #1" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "   1: HALT" {
		t.Errorf("line 1 = %q", lines[1])
	}
}
