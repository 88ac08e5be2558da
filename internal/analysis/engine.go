package analysis

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
)

// BytecodeEngine is the built-in detector. It only knows a couple of
// opcode-level checks; it exists so the pipeline is exercisable end to end
// without the external analyzer.
type BytecodeEngine struct{}

const (
	opSelfdestruct = 0xff
	opDelegatecall = 0xf4
)

func (BytecodeEngine) Analyze(_ context.Context, contracts []string) ([]Issue, error) {
	issues := []Issue{}
	for i, contract := range contracts {
		code, err := hex.DecodeString(strings.TrimPrefix(contract, "0x"))
		if err != nil {
			return nil, fmt.Errorf("contract %d is not valid bytecode: %w", i, err)
		}
		for addr, op := range code {
			switch op {
			case opSelfdestruct:
				issues = append(issues, Issue{
					Title:       "Unchecked SELFDESTRUCT",
					Description: "The contract can be destroyed; verify the call is guarded.",
					Contract:    i,
					Address:     addr,
				})
			case opDelegatecall:
				issues = append(issues, Issue{
					Title:       "DELEGATECALL to untrusted callee",
					Description: "Delegatecall executes foreign code in this contract's context.",
					Contract:    i,
					Address:     addr,
				})
			}
		}
	}
	return issues, nil
}
