package protocol

// Request builders for host -> robot messages. Every builder takes the
// host's own node id as the frame source.

// MaxBytecodeChunkWords bounds one SET_BYTECODE payload.
const MaxBytecodeChunkWords = 256

func NewListNodes(hostNode uint16) Message {
	return Message{
		ID:         IDListNodes,
		SourceNode: hostNode,
		Payload:    WordsToBytes([]uint16{ProtocolVersion}),
	}
}

func NewGetNodeDescription(hostNode, targetNode uint16) Message {
	return Message{
		ID:         IDGetNodeDescription,
		SourceNode: hostNode,
		Payload:    WordsToBytes([]uint16{targetNode, ProtocolVersion}),
	}
}

func NewGetDeviceInfo(hostNode, targetNode uint16, kind uint8) Message {
	return Message{
		ID:         IDGetDeviceInfo,
		SourceNode: hostNode,
		Payload:    WordsToBytes([]uint16{targetNode, uint16(kind)}),
	}
}

// NewGetVariables requests count words of variable memory starting at
// offset from targetNode.
func NewGetVariables(hostNode, targetNode, offset, count uint16) Message {
	return Message{
		ID:         IDGetVariables,
		SourceNode: hostNode,
		Payload:    WordsToBytes([]uint16{targetNode, offset, count}),
	}
}

// NewSetVariables writes values into targetNode's variable memory at
// offset.
func NewSetVariables(hostNode, targetNode, offset uint16, values []int16) Message {
	words := make([]uint16, 0, 2+len(values))
	words = append(words, targetNode, offset)
	words = append(words, ValuesToWords(values)...)
	return Message{
		ID:         IDSetVariables,
		SourceNode: hostNode,
		Payload:    WordsToBytes(words),
	}
}

// NewSetBytecode uploads one chunk of program words at the given bytecode
// address.
func NewSetBytecode(hostNode, targetNode, address uint16, chunk []uint16) Message {
	words := make([]uint16, 0, 2+len(chunk))
	words = append(words, targetNode, address)
	words = append(words, chunk...)
	return Message{
		ID:         IDSetBytecode,
		SourceNode: hostNode,
		Payload:    WordsToBytes(words),
	}
}

// NewControl builds the one-word control messages (RESET, RUN, PAUSE,
// STEP, STOP, GET_EXECUTION_STATE, BREAKPOINT_CLEAR_ALL).
func NewControl(id MessageID, hostNode, targetNode uint16) Message {
	return Message{
		ID:         id,
		SourceNode: hostNode,
		Payload:    WordsToBytes([]uint16{targetNode}),
	}
}
