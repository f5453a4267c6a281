// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package mpsort

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

// Kind is the closed set of ways a Sort can abort. The core never
// returns a partial result: every failure is one of these kinds,
// wrapped with the call site via github.com/pkg/errors so %+v on the
// returned error prints the originating stack.
type Kind int

const (
	// SizeMismatch: sum of input sizes != sum of output sizes.
	SizeMismatch Kind = iota
	// ChecksumMismatch: summed per-record checksum of input != output.
	ChecksumMismatch
	// LayoutOvercommit: deficit went negative solving the send plan;
	// this means the splitter search produced an inconsistent
	// histogram and is always a programming error in this module,
	// never a caller error.
	LayoutOvercommit
	// ExchangeMismatch: received byte count != output size.
	ExchangeMismatch
	// UnsupportedPtrWidth: the communicator reported it has no
	// collective type for an offset/count of the size this sort needs.
	UnsupportedPtrWidth
	// CommFailure: the underlying communicator's collective failed;
	// propagated as an abort for every rank.
	CommFailure
)

func (k Kind) String() string {
	switch k {
	case SizeMismatch:
		return "size-mismatch"
	case ChecksumMismatch:
		return "checksum-mismatch"
	case LayoutOvercommit:
		return "layout-overcommit"
	case ExchangeMismatch:
		return "exchange-mismatch"
	case UnsupportedPtrWidth:
		return "unsupported-ptr-width"
	case CommFailure:
		return "collective-communication-error"
	default:
		return "unknown-error-kind"
	}
}

// Error is the concrete error type returned by Sort. Kind lets a caller
// switch on the failure category without string matching; the wrapped
// cause (via Unwrap), produced by github.com/pkg/errors, carries the
// full call-site stack when formatted with %+v.
type Error struct {
	Kind  Kind
	Site  string // "file.go:line" naming the abort's caller, per spec.md §7
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mpsort: %s at %s: %v", e.Kind, e.Site, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Format implements fmt.Formatter so %+v on a returned error prints the
// originating stack trace captured by pkg/errors.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n%+v", e.Error(), e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// newError builds a site-annotated, stack-traced *Error naming the
// direct caller of newError (the abort site), matching spec.md §7's
// requirement that every abort name the caller file/line.
func newError(kind Kind, format string, args ...interface{}) error {
	site := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		site = fmt.Sprintf("%s:%d", file, line)
	}
	return &Error{
		Kind:  kind,
		Site:  site,
		cause: errors.Errorf(format, args...),
	}
}
