// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strconv"
)

// Severity grades a compatibility finding.
type Severity uint8

const (
	// Warning: some values decode wrongly or fail, but values that
	// avoid the flagged field or variant are fine.
	Warning Severity = iota + 1

	// Breaking: values the writer produces routinely fail to decode
	// or decode to the wrong thing.
	Breaking
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Breaking:
		return "breaking"
	default:
		return "Severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// Finding is one problem found by CheckCompatibility. Type and Member
// locate it in the reader's definitions (Member is empty for problems
// with a whole type).
type Finding struct {
	Severity Severity
	Type     string
	Member   string
	Message  string
}

func (f Finding) String() string {
	location := f.Type
	if f.Member != "" {
		location += "." + f.Member
	}
	return f.Severity.String() + ": " + location + ": " + f.Message
}

// CheckCompatibility reports what goes wrong when values of the named
// type, encoded under writer, are decoded under reader. Referenced
// types are checked recursively, matched by position: the type a
// writer field refers to is compared with the type the same reader
// field refers to, whatever their names.
//
// Writer fields the reader does not declare are flagged because
// decoding cannot skip their bytes: a reader that meets one only stays
// in sync if it happens to be the last field of the input. They are
// Breaking when the writer always writes the field and Warning when it
// writes it only for non-default values.
func CheckCompatibility(writer, reader *Catalog, name string) ([]Finding, error) {
	if _, ok := writer.Lookup(name); !ok {
		return nil, &Error{Type: name, Err: fmt.Errorf("%w: not in the writer schema", ErrUnknownType)}
	}
	if _, ok := reader.Lookup(name); !ok {
		return nil, &Error{Type: name, Err: fmt.Errorf("%w: not in the reader schema", ErrUnknownType)}
	}
	checker := &compatChecker{writer: writer, reader: reader, visited: make(map[[2]string]bool)}
	checker.defs(name, name)
	return checker.findings, nil
}

// HasBreaking reports whether any finding is Breaking.
func HasBreaking(findings []Finding) bool {
	for _, finding := range findings {
		if finding.Severity == Breaking {
			return true
		}
	}
	return false
}

type compatChecker struct {
	writer, reader *Catalog
	visited        map[[2]string]bool
	findings       []Finding
}

func (c *compatChecker) report(severity Severity, typeName, member, format string, args ...any) {
	c.findings = append(c.findings, Finding{
		Severity: severity,
		Type:     typeName,
		Member:   member,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *compatChecker) defs(writerName, readerName string) {
	key := [2]string{writerName, readerName}
	if c.visited[key] {
		return
	}
	c.visited[key] = true

	writerDef, _ := c.writer.Lookup(writerName)
	readerDef, _ := c.reader.Lookup(readerName)
	if writerDef.Union != readerDef.Union {
		c.report(Breaking, readerName, "", "writer %s is a %s, reader expects a %s",
			writerName, kindName(writerDef), kindName(readerDef))
		return
	}
	if readerDef.Union {
		c.unions(writerDef, readerDef)
	} else {
		c.records(writerDef, readerDef)
	}
}

func kindName(def *Def) string {
	if def.Union {
		return "union"
	}
	return "record"
}

func (c *compatChecker) records(writerDef, readerDef *Def) {
	for i := range readerDef.Fields {
		readerField := &readerDef.Fields[i]
		writerField, known := writerDef.Field(readerField.ID)
		if !known || writerField.Presence == Skipped {
			if readerField.Presence == Required {
				c.report(Breaking, readerDef.Name, readerField.Name,
					"reader requires field %d, which the writer never writes", readerField.ID)
			}
			continue
		}
		c.types(writerField.Type, readerField.Type, readerDef.Name, readerField.Name)
		if readerField.Presence == Required && writerField.Presence == Optional {
			c.report(Breaking, readerDef.Name, readerField.Name,
				"reader requires field %d, which the writer omits when it holds its default", readerField.ID)
		}
	}
	for i := range writerDef.Fields {
		writerField := &writerDef.Fields[i]
		if writerField.Presence == Skipped {
			continue
		}
		if _, known := readerDef.Field(writerField.ID); known {
			continue
		}
		severity := Warning
		if writerField.Presence == Required {
			severity = Breaking
		}
		c.report(severity, readerDef.Name, "",
			"writer field %d (%s) is unknown to the reader; decoding loses sync unless it is the last field written",
			writerField.ID, writerField.Name)
	}
}

func (c *compatChecker) unions(writerDef, readerDef *Def) {
	for i := range writerDef.Variants {
		writerCase := &writerDef.Variants[i]
		readerCase, known := readerDef.Variant(writerCase.ID)
		if !known {
			c.report(Warning, readerDef.Name, "",
				"writer variant %d (%s) is unknown to the reader; values of it fail to decode",
				writerCase.ID, writerCase.Name)
			continue
		}
		switch {
		case writerCase.Payload == nil && readerCase.Payload == nil:
		case writerCase.Payload == nil:
			c.report(Breaking, readerDef.Name, readerCase.Name,
				"reader expects a %s payload, writer sends none", readerCase.Payload)
		case readerCase.Payload == nil:
			c.report(Breaking, readerDef.Name, readerCase.Name,
				"writer sends a %s payload, reader expects none", writerCase.Payload)
		default:
			c.types(*writerCase.Payload, *readerCase.Payload, readerDef.Name, readerCase.Name)
		}
	}
}

// types compares two field or payload types by wire shape and recurses
// into the definitions they reference.
func (c *compatChecker) types(writerType, readerType Type, owner, member string) {
	var refs [][2]string
	if !sameShape(wireShape(writerType), wireShape(readerType), &refs) {
		c.report(Breaking, owner, member, "type changed from %s to %s", writerType, readerType)
		return
	}
	for _, pair := range refs {
		c.defs(pair[0], pair[1])
	}
}

func sameShape(w, r Type, refs *[][2]string) bool {
	if w.Kind != r.Kind || w.Len != r.Len || len(w.Elems) != len(r.Elems) {
		return false
	}
	if w.Kind == KindRef {
		*refs = append(*refs, [2]string{w.Name, r.Name})
		return true
	}
	for i := range w.Elems {
		if !sameShape(w.Elems[i], r.Elems[i], refs) {
			return false
		}
	}
	return true
}
