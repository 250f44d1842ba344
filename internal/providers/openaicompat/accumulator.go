package openaicompat

import (
	"sort"
	"strings"

	"github.com/nullpointer-labs/chatcore/internal/model"
)

// toolAccumulator assembles tool call deltas keyed by streaming index,
// generalizing the teacher's StreamAccumulator (internal/llm/openai in the
// source repo this was adapted from) to the shared model.ToolCall shape.
type toolAccumulator struct {
	states map[int]*toolCallState
	order  []int
}

type toolCallState struct {
	id               string
	callType         string
	name             string
	argumentsBuilder strings.Builder
}

func newToolAccumulator() *toolAccumulator {
	return &toolAccumulator{states: map[int]*toolCallState{}}
}

// Apply ingests one streamed tool call delta.
func (acc *toolAccumulator) Apply(delta streamToolDelta) {
	state := acc.states[delta.Index]
	if state == nil {
		state = &toolCallState{}
		acc.states[delta.Index] = state
		acc.order = append(acc.order, delta.Index)
	}
	if delta.ID != "" {
		state.id = delta.ID
	}
	if delta.Type != "" {
		state.callType = delta.Type
	}
	if delta.Function.Name != "" {
		state.name += delta.Function.Name
	}
	if delta.Function.Arguments != "" {
		state.argumentsBuilder.WriteString(delta.Function.Arguments)
	}
}

// Flush returns accumulated tool calls in ascending index order and resets
// the accumulator.
func (acc *toolAccumulator) Flush() []model.ToolCall {
	if len(acc.order) == 0 {
		return nil
	}
	sort.Ints(acc.order)
	calls := make([]model.ToolCall, 0, len(acc.order))
	for _, index := range acc.order {
		state := acc.states[index]
		callType := state.callType
		if callType == "" {
			callType = "function"
		}
		calls = append(calls, model.ToolCall{
			ID:   state.id,
			Type: callType,
			Function: model.ToolCallFunction{
				Name:      state.name,
				Arguments: state.argumentsBuilder.String(),
			},
		})
	}
	acc.states = map[int]*toolCallState{}
	acc.order = nil
	return calls
}

// Empty reports whether any tool call delta has been seen since the last Flush.
func (acc *toolAccumulator) Empty() bool { return len(acc.order) == 0 }
