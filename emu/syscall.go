package emu

import (
	"io"

	"github.com/sarchlab/a64/insts"
)

// ARM64 Linux syscall numbers.
const (
	SyscallRead      uint64 = 63 // read(fd, buf, count)
	SyscallWrite     uint64 = 64 // write(fd, buf, count)
	SyscallExit      uint64 = 93 // exit(status)
	SyscallExitGroup uint64 = 94 // exit_group(status)
)

// Linux error codes.
const (
	EIO    = 5  // I/O error
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 38 // Function not implemented
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling ARM64 syscalls.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// ARM64 Linux syscall convention:
	//   - Syscall number in X8
	//   - Arguments in X0-X5
	//   - Return value in X0, or -errno
	Handle() SyscallResult
}

// DefaultSyscallHandler serves exit and stream I/O on a table of file
// descriptors. Descriptors 1 and 2 start out as stdout and stderr; stdin
// is empty until SetStdin.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	readers map[uint64]io.Reader
	writers map[uint64]io.Writer
}

var syscallTable = map[uint64]func(*DefaultSyscallHandler) SyscallResult{
	SyscallRead:      (*DefaultSyscallHandler).read,
	SyscallWrite:     (*DefaultSyscallHandler).write,
	SyscallExit:      (*DefaultSyscallHandler).exit,
	SyscallExitGroup: (*DefaultSyscallHandler).exit,
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		readers: map[uint64]io.Reader{},
		writers: map[uint64]io.Writer{1: stdout, 2: stderr},
	}
}

// SetStdin sets the reader behind descriptor 0.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.SetReader(0, stdin)
}

// SetReader opens fd for reading from r.
func (h *DefaultSyscallHandler) SetReader(fd uint64, r io.Reader) {
	h.readers[fd] = r
}

// SetWriter opens fd for writing to w.
func (h *DefaultSyscallHandler) SetWriter(fd uint64, w io.Writer) {
	h.writers[fd] = w
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	call, ok := syscallTable[h.regFile.ReadReg(insts.R8)]
	if !ok {
		h.fail(ENOSYS)
		return SyscallResult{}
	}
	return call(h)
}

// args returns the first three syscall arguments.
func (h *DefaultSyscallHandler) args() (a0, a1, a2 uint64) {
	return h.regFile.ReadReg(insts.R0), h.regFile.ReadReg(insts.R1), h.regFile.ReadReg(insts.R2)
}

func (h *DefaultSyscallHandler) exit() SyscallResult {
	status, _, _ := h.args()
	return SyscallResult{Exited: true, ExitCode: int64(status)}
}

func (h *DefaultSyscallHandler) read() SyscallResult {
	fd, buf, count := h.args()

	r, ok := h.readers[fd]
	if !ok {
		if fd == 0 {
			h.succeed(0) // EOF
		} else {
			h.fail(EBADF)
		}
		return SyscallResult{}
	}

	data := make([]byte, count)
	n, err := r.Read(data)
	if err != nil && err != io.EOF && n == 0 {
		h.fail(EIO)
		return SyscallResult{}
	}

	h.memory.WriteBytes(buf, data[:n])
	h.succeed(uint64(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) write() SyscallResult {
	fd, buf, count := h.args()

	w, ok := h.writers[fd]
	if !ok || w == nil {
		h.fail(EBADF)
		return SyscallResult{}
	}

	data := make([]byte, count)
	h.memory.ReadBytes(buf, data)

	n, err := w.Write(data)
	if err != nil && n == 0 {
		h.fail(EIO)
		return SyscallResult{}
	}

	h.succeed(uint64(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) succeed(v uint64) {
	h.regFile.WriteReg(insts.R0, v)
}

// fail sets X0 to -errno.
func (h *DefaultSyscallHandler) fail(errno int) {
	h.regFile.WriteReg(insts.R0, uint64(-int64(errno)))
}
