package compute

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CmdBeginPass CommandKind = iota + 1
	CmdSetPipeline
	CmdPushConstants
	CmdDispatch
	CmdBarrier
	CmdEndPass
)

func (k CommandKind) String() string {
	switch k {
	case CmdBeginPass:
		return "begin-pass"
	case CmdSetPipeline:
		return "set-pipeline"
	case CmdPushConstants:
		return "push-constants"
	case CmdDispatch:
		return "dispatch"
	case CmdBarrier:
		return "barrier"
	case CmdEndPass:
		return "end-pass"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one recorded operation. Only the fields relevant to Kind are set.
type Command struct {
	Kind     CommandKind
	Label    string
	Pipeline Pipeline
	Set      ResourceSet
	Params   []byte
	GroupsX  int
	GroupsY  int
}

// CommandList is an immutable, validated sequence of commands.
type CommandList struct {
	Label    string
	Commands []Command
}

// Dispatches returns the number of dispatch commands in the list.
func (l *CommandList) Dispatches() int {
	n := 0
	for _, c := range l.Commands {
		if c.Kind == CmdDispatch {
			n++
		}
	}
	return n
}

// Encoder records commands. It is not safe for concurrent use. The first
// recording error is kept and returned by Finish; later calls are ignored.
type Encoder struct {
	label    string
	cmds     []Command
	inPass   bool
	pipeline Pipeline
	pushed   bool
	err      error
}

// NewEncoder returns an empty encoder.
func NewEncoder(label string) *Encoder {
	return &Encoder{label: label}
}

func (e *Encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: %w: %s", e.label, ErrEncoding, fmt.Sprintf(format, args...))
	}
}

// BeginComputePass opens a compute pass.
func (e *Encoder) BeginComputePass(label string) {
	if e.err != nil {
		return
	}
	if e.inPass {
		e.fail("pass %q opened inside another pass", label)
		return
	}
	e.inPass = true
	e.pipeline = nil
	e.cmds = append(e.cmds, Command{Kind: CmdBeginPass, Label: label})
}

// SetPipeline selects the pipeline and resource set for later dispatches.
func (e *Encoder) SetPipeline(p Pipeline, set ResourceSet) {
	if e.err != nil {
		return
	}
	if !e.inPass {
		e.fail("pipeline set outside a pass")
		return
	}
	if p == nil || set == nil {
		e.fail("nil pipeline or resource set")
		return
	}
	e.pipeline = p
	e.pushed = false
	e.cmds = append(e.cmds, Command{Kind: CmdSetPipeline, Pipeline: p, Set: set})
}

// PushConstants sets the parameter block for later dispatches. The block
// must match the pipeline kernel's ParamSize.
func (e *Encoder) PushConstants(block []byte) {
	if e.err != nil {
		return
	}
	if e.pipeline == nil {
		e.fail("parameters pushed before a pipeline was set")
		return
	}
	if want := e.pipeline.Kernel().ParamSize; len(block) != want {
		e.fail("kernel %s: parameter block is %d bytes, want %d", e.pipeline.Kernel().Name, len(block), want)
		return
	}
	e.pushed = true
	e.cmds = append(e.cmds, Command{Kind: CmdPushConstants, Params: bytes.Clone(block)})
}

// Dispatch runs the current pipeline over groupsX × groupsY workgroups.
func (e *Encoder) Dispatch(groupsX, groupsY int) {
	if e.err != nil {
		return
	}
	if e.pipeline == nil {
		e.fail("dispatch without a pipeline")
		return
	}
	if !e.pushed && e.pipeline.Kernel().ParamSize > 0 {
		e.fail("kernel %s dispatched without parameters", e.pipeline.Kernel().Name)
		return
	}
	if groupsX <= 0 || groupsY <= 0 {
		e.fail("kernel %s dispatched over %dx%d groups", e.pipeline.Kernel().Name, groupsX, groupsY)
		return
	}
	e.cmds = append(e.cmds, Command{Kind: CmdDispatch, GroupsX: groupsX, GroupsY: groupsY})
}

// Barrier makes every write recorded so far visible to later dispatches.
func (e *Encoder) Barrier() {
	if e.err != nil {
		return
	}
	if !e.inPass {
		e.fail("barrier outside a pass")
		return
	}
	e.cmds = append(e.cmds, Command{Kind: CmdBarrier})
}

// EndComputePass closes the pass. Ending a pass implies a barrier.
func (e *Encoder) EndComputePass() {
	if e.err != nil {
		return
	}
	if !e.inPass {
		e.fail("end of pass without a pass")
		return
	}
	e.inPass = false
	e.pipeline = nil
	e.cmds = append(e.cmds, Command{Kind: CmdEndPass})
}

// Finish returns the recorded list.
func (e *Encoder) Finish() (*CommandList, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.inPass {
		return nil, fmt.Errorf("%s: %w: pass left open", e.label, ErrEncoding)
	}
	list := &CommandList{Label: e.label, Commands: e.cmds}
	e.cmds = nil
	return list, nil
}

// EncodeParams packs a fixed-size parameter struct into a little-endian
// block. Blank fields are written as zero padding. It panics if v is not a
// fixed-size value, which is a programming error.
func EncodeParams(v any) []byte {
	b, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		panic(fmt.Sprintf("compute: encoding parameter block %T: %v", v, err))
	}
	return b
}

// DecodeParams unpacks a block written by EncodeParams into v, which must
// be a pointer to the same struct type.
func DecodeParams(block []byte, v any) error {
	want := binary.Size(v)
	if want < 0 {
		return fmt.Errorf("decoding parameter block: %T is not fixed-size", v)
	}
	if len(block) != want {
		return fmt.Errorf("decoding parameter block into %T: got %d bytes, want %d", v, len(block), want)
	}
	if _, err := binary.Decode(block, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("decoding parameter block into %T: %w", v, err)
	}
	return nil
}
