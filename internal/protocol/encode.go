package protocol

// Encoders for robot -> host payloads. The engine never sends these over
// a live link; they are the mirror half of the codec so round-trips hold
// for every message kind, and they drive the scripted robots used in
// connection tests.

func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func (d Description) Encode(sourceNode uint16) Message {
	buf := appendString(nil, d.NodeName)
	buf = append(buf, WordsToBytes([]uint16{
		d.ProtocolVersion, d.BytecodeSize, d.StackSize, d.MaxVarSize,
		d.NumNamedVars, d.NumLocalEvents, d.NumNativeFuns,
	})...)
	return Message{ID: IDDescription, SourceNode: sourceNode, Payload: buf}
}

func (d NamedVariableDescription) Encode(sourceNode uint16) Message {
	buf := WordsToBytes([]uint16{d.Size})
	buf = appendString(buf, d.Name)
	return Message{ID: IDNamedVariableDescription, SourceNode: sourceNode, Payload: buf}
}

func (d LocalEventDescription) Encode(sourceNode uint16) Message {
	buf := appendString(nil, d.Name)
	buf = appendString(buf, d.Description)
	return Message{ID: IDLocalEventDescription, SourceNode: sourceNode, Payload: buf}
}

func (d NativeFunctionDescription) Encode(sourceNode uint16) Message {
	buf := appendString(nil, d.Name)
	buf = appendString(buf, d.Description)
	buf = append(buf, WordsToBytes([]uint16{uint16(len(d.ParamNames))})...)
	for i := range d.ParamNames {
		buf = append(buf, WordsToBytes([]uint16{d.ParamSizes[i]})...)
		buf = appendString(buf, d.ParamNames[i])
	}
	return Message{ID: IDNativeFunctionDescription, SourceNode: sourceNode, Payload: buf}
}

func (v Variables) Encode(sourceNode uint16) Message {
	words := make([]uint16, 0, 1+len(v.Data))
	words = append(words, v.Offset)
	words = append(words, ValuesToWords(v.Data)...)
	return Message{ID: IDVariables, SourceNode: sourceNode, Payload: WordsToBytes(words)}
}

func (p NodePresent) Encode(sourceNode uint16) Message {
	return Message{ID: IDNodePresent, SourceNode: sourceNode, Payload: WordsToBytes([]uint16{p.Version})}
}

func (s ExecutionStateChanged) Encode(sourceNode uint16) Message {
	return Message{ID: IDExecutionStateChanged, SourceNode: sourceNode, Payload: WordsToBytes([]uint16{s.PC, s.Flags})}
}

func (i DeviceInfo) Encode(sourceNode uint16) Message {
	buf := []byte{i.Kind}
	switch i.Kind {
	case DeviceInfoName:
		buf = appendString(buf, i.Name)
	case DeviceInfoUUID:
		raw := i.UUID[:]
		buf = append(buf, byte(len(raw)))
		buf = append(buf, raw...)
	case DeviceInfoThymio2RFSetting:
		buf = append(buf, 6)
		buf = append(buf, WordsToBytes([]uint16{i.RFNetworkID, i.RFNodeID, i.RFChannel})...)
	}
	return Message{ID: IDDeviceInfo, SourceNode: sourceNode, Payload: buf}
}

func (e UserEvent) Encode(sourceNode uint16) Message {
	return Message{
		ID:         MessageID(e.Event),
		SourceNode: sourceNode,
		Payload:    WordsToBytes(ValuesToWords(e.Args)),
	}
}
