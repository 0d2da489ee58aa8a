// Package qbc implements the QBC bytecode container format: a 20-byte
// header, packed instructions, and an opaque metadata blob. Encode and
// Decode are exact inverses for every opcode in the table below, per
// spec.md §4.G.
package qbc

import (
	"encoding/binary"
	"math"

	"github.com/Yogirajpp/qvm/core"
	"go.uber.org/multierr"
)

func float32bits(f float32) uint32     { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

// Magic is the fixed 4-byte QBC file signature.
var Magic = [4]byte{'Q', 'B', 'C', 0}

// Version is the only ABI version this module produces or accepts.
const Version uint16 = 1

const headerSize = 20

// Opcode identifies one bytecode instruction.
type Opcode byte

const (
	OpAlloc   Opcode = 0x01
	OpDealloc Opcode = 0x02

	OpX   Opcode = 0x10
	OpY   Opcode = 0x11
	OpZ   Opcode = 0x12
	OpH   Opcode = 0x13
	OpS   Opcode = 0x14
	OpT   Opcode = 0x15

	OpRX    Opcode = 0x20
	OpRY    Opcode = 0x21
	OpRZ    Opcode = 0x22
	OpPHASE Opcode = 0x23

	OpCNOT  Opcode = 0x30
	OpCZ    Opcode = 0x31
	OpSWAP  Opcode = 0x32
	OpISWAP Opcode = 0x33

	OpTOFFOLI Opcode = 0x40
	OpFREDKIN Opcode = 0x41

	OpMEASURE     Opcode = 0x50
	OpMEASUREALL  Opcode = 0x51

	OpCJMP Opcode = 0x60
	OpJMP  Opcode = 0x61

	OpSTORE Opcode = 0x70
	OpLOAD  Opcode = 0x71

	OpADD Opcode = 0x80
	OpSUB Opcode = 0x81
	OpMUL Opcode = 0x82
	OpDIV Opcode = 0x83

	OpAND Opcode = 0x90
	OpOR  Opcode = 0x91
	OpXOR Opcode = 0x92
	OpNOT Opcode = 0x93

	OpEQ  Opcode = 0xA0
	OpNEQ Opcode = 0xA1
	OpLT  Opcode = 0xA2
	OpGT  Opcode = 0xA3

	OpEND Opcode = 0xFF
)

var mnemonics = map[Opcode]string{
	OpAlloc: "ALLOC", OpDealloc: "DEALLOC",
	OpX: "X", OpY: "Y", OpZ: "Z", OpH: "H", OpS: "S", OpT: "T",
	OpRX: "RX", OpRY: "RY", OpRZ: "RZ", OpPHASE: "PHASE",
	OpCNOT: "CNOT", OpCZ: "CZ", OpSWAP: "SWAP", OpISWAP: "iSWAP",
	OpTOFFOLI: "TOFFOLI", OpFREDKIN: "FREDKIN",
	OpMEASURE: "MEASURE", OpMEASUREALL: "MEASURE_ALL",
	OpCJMP: "CJMP", OpJMP: "JMP",
	OpSTORE: "STORE", OpLOAD: "LOAD",
	OpADD: "ADD", OpSUB: "SUB", OpMUL: "MUL", OpDIV: "DIV",
	OpAND: "AND", OpOR: "OR", OpXOR: "XOR", OpNOT: "NOT",
	OpEQ: "EQ", OpNEQ: "NEQ", OpLT: "LT", OpGT: "GT",
	OpEND: "END",
}

// Mnemonic returns the human-readable name of op, or "" if unknown.
func Mnemonic(op Opcode) string { return mnemonics[op] }

// Instruction is one decoded bytecode step. Only the fields relevant to
// Op are populated; the interpreter knows which fields matter per
// opcode.
type Instruction struct {
	Op Opcode

	Q1, Q2, Q3 uint8
	Addr, Src, Dst, A, B, R uint8
	Angle                   float32
	Target                  uint32
	Value                   int32
	Cond                    uint8
}

// Image is a fully decoded (or pre-encoding) QBC program: qubit count,
// instructions, and the opaque metadata blob.
type Image struct {
	Qubits       uint16
	Instructions []Instruction
	Metadata     []byte
}

// instructionLength returns the total on-wire byte length (opcode byte
// included) for op, or 0 if op is unknown.
func instructionLength(op Opcode) int {
	switch op {
	case OpAlloc, OpDealloc, OpX, OpY, OpZ, OpH, OpS, OpT:
		return 2
	case OpRX, OpRY, OpRZ, OpPHASE:
		return 6
	case OpCNOT, OpCZ, OpSWAP, OpISWAP:
		return 3
	case OpTOFFOLI, OpFREDKIN:
		return 4
	case OpMEASURE:
		return 3
	case OpMEASUREALL:
		return 1
	case OpCJMP:
		return 6
	case OpJMP:
		return 5
	case OpSTORE:
		return 6
	case OpLOAD:
		return 3
	case OpADD, OpSUB, OpMUL, OpDIV, OpAND, OpOR, OpXOR:
		return 4
	case OpNOT:
		return 3
	case OpEQ, OpNEQ, OpLT, OpGT:
		return 4
	case OpEND:
		return 1
	default:
		return 0
	}
}

// Encode serializes img into the QBC wire format: header, packed
// instructions, metadata.
func Encode(img Image) ([]byte, error) {
	data, err := encodeInstructions(img.Instructions)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, headerSize+len(data)+len(img.Metadata))
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], Version)
	binary.LittleEndian.PutUint16(buf[6:8], img.Qubits)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(img.Instructions)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(data)))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(img.Metadata)))
	copy(buf[headerSize:], data)
	copy(buf[headerSize+len(data):], img.Metadata)
	return buf, nil
}

func encodeInstructions(instrs []Instruction) ([]byte, error) {
	var out []byte
	var errs error
	for idx, in := range instrs {
		b, err := encodeOne(in)
		if err != nil {
			errs = multierr.Append(errs, core.Newf(core.KindInvalidBytecode, err, "instruction %d", idx))
			continue
		}
		out = append(out, b...)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func encodeOne(in Instruction) ([]byte, error) {
	length := instructionLength(in.Op)
	if length == 0 {
		return nil, core.New(core.KindInvalidBytecode, "unknown opcode", nil)
	}
	b := make([]byte, length)
	b[0] = byte(in.Op)
	switch in.Op {
	case OpAlloc, OpDealloc:
		b[1] = in.Q1
	case OpX, OpY, OpZ, OpH, OpS, OpT:
		b[1] = in.Q1
	case OpRX, OpRY, OpRZ, OpPHASE:
		b[1] = in.Q1
		binary.LittleEndian.PutUint32(b[2:6], float32bits(in.Angle))
	case OpCNOT, OpCZ, OpSWAP, OpISWAP:
		b[1], b[2] = in.Q1, in.Q2
	case OpTOFFOLI, OpFREDKIN:
		b[1], b[2], b[3] = in.Q1, in.Q2, in.Q3
	case OpMEASURE:
		b[1], b[2] = in.Q1, in.Dst
	case OpMEASUREALL, OpEND:
		// no operands
	case OpCJMP:
		b[1] = in.Cond
		binary.LittleEndian.PutUint32(b[2:6], in.Target)
	case OpJMP:
		binary.LittleEndian.PutUint32(b[1:5], in.Target)
	case OpSTORE:
		b[1] = in.Addr
		binary.LittleEndian.PutUint32(b[2:6], uint32(in.Value))
	case OpLOAD:
		b[1], b[2] = in.Src, in.Dst
	case OpADD, OpSUB, OpMUL, OpDIV, OpAND, OpOR, OpXOR:
		b[1], b[2], b[3] = in.A, in.B, in.R
	case OpNOT:
		b[1], b[2] = in.A, in.R
	case OpEQ, OpNEQ, OpLT, OpGT:
		b[1], b[2], b[3] = in.A, in.B, in.R
	default:
		return nil, core.New(core.KindInvalidBytecode, "unknown opcode", nil)
	}
	return b, nil
}

// Decode parses raw QBC bytes, validating the header (magic, version)
// and splitting the instruction/metadata regions per their declared
// sizes.
func Decode(raw []byte) (Image, error) {
	if len(raw) < headerSize {
		return Image{}, core.New(core.KindInvalidBytecode, "buffer shorter than header", nil)
	}
	if string(raw[0:4]) != string(Magic[:]) {
		return Image{}, core.New(core.KindInvalidBytecode, "bad magic", nil)
	}
	version := binary.LittleEndian.Uint16(raw[4:6])
	if version != Version {
		return Image{}, core.New(core.KindInvalidBytecode, "unsupported version", nil)
	}
	qubits := binary.LittleEndian.Uint16(raw[6:8])
	instrCount := binary.LittleEndian.Uint32(raw[8:12])
	dataSize := binary.LittleEndian.Uint32(raw[12:16])
	metaSize := binary.LittleEndian.Uint32(raw[16:20])

	want := int(headerSize) + int(dataSize) + int(metaSize)
	if len(raw) != want {
		return Image{}, core.New(core.KindInvalidBytecode, "buffer length does not match header sizes", nil)
	}

	data := raw[headerSize : headerSize+int(dataSize)]
	metadata := raw[headerSize+int(dataSize):]

	instrs, err := decodeInstructions(data, int(instrCount))
	if err != nil {
		return Image{}, err
	}

	return Image{
		Qubits:       qubits,
		Instructions: instrs,
		Metadata:     append([]byte(nil), metadata...),
	}, nil
}

func decodeInstructions(data []byte, count int) ([]Instruction, error) {
	out := make([]Instruction, 0, count)
	pos := 0
	var errs error
	for len(out) < count {
		if pos >= len(data) {
			errs = multierr.Append(errs, core.New(core.KindInvalidBytecode, "instruction stream truncated", nil))
			break
		}
		in, n, err := decodeOne(data[pos:])
		if err != nil {
			errs = multierr.Append(errs, core.Newf(core.KindInvalidBytecode, err, "offset %d", pos))
			break
		}
		out = append(out, in)
		pos += n
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

// DecodeInstruction decodes a single instruction starting at b[0],
// returning the instruction and its on-wire byte length. The
// interpreter's fetch loop uses this directly against live buffer
// offsets rather than re-running the whole-buffer Decode per step.
func DecodeInstruction(b []byte) (Instruction, int, error) {
	return decodeOne(b)
}

// InstructionLength returns the on-wire byte length (opcode byte
// included) for op, or 0 if op is unknown. Exported so callers that
// lay out byte offsets without encoding (the circuit builder's jump
// resolution in Compile) don't have to re-decode.
func InstructionLength(op Opcode) int { return instructionLength(op) }

func decodeOne(b []byte) (Instruction, int, error) {
	op := Opcode(b[0])
	length := instructionLength(op)
	if length == 0 {
		return Instruction{}, 0, core.New(core.KindInvalidBytecode, "unknown opcode", nil)
	}
	if len(b) < length {
		return Instruction{}, 0, core.New(core.KindInvalidBytecode, "truncated instruction", nil)
	}
	in := Instruction{Op: op}
	switch op {
	case OpAlloc, OpDealloc, OpX, OpY, OpZ, OpH, OpS, OpT:
		in.Q1 = b[1]
	case OpRX, OpRY, OpRZ, OpPHASE:
		in.Q1 = b[1]
		in.Angle = float32frombits(binary.LittleEndian.Uint32(b[2:6]))
	case OpCNOT, OpCZ, OpSWAP, OpISWAP:
		in.Q1, in.Q2 = b[1], b[2]
	case OpTOFFOLI, OpFREDKIN:
		in.Q1, in.Q2, in.Q3 = b[1], b[2], b[3]
	case OpMEASURE:
		in.Q1, in.Dst = b[1], b[2]
	case OpMEASUREALL, OpEND:
	case OpCJMP:
		in.Cond = b[1]
		in.Target = binary.LittleEndian.Uint32(b[2:6])
	case OpJMP:
		in.Target = binary.LittleEndian.Uint32(b[1:5])
	case OpSTORE:
		in.Addr = b[1]
		in.Value = int32(binary.LittleEndian.Uint32(b[2:6]))
	case OpLOAD:
		in.Src, in.Dst = b[1], b[2]
	case OpADD, OpSUB, OpMUL, OpDIV, OpAND, OpOR, OpXOR:
		in.A, in.B, in.R = b[1], b[2], b[3]
	case OpNOT:
		in.A, in.R = b[1], b[2]
	case OpEQ, OpNEQ, OpLT, OpGT:
		in.A, in.B, in.R = b[1], b[2], b[3]
	default:
		return Instruction{}, 0, core.New(core.KindInvalidBytecode, "unknown opcode", nil)
	}
	return in, length, nil
}
