package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mdl-compiler/internal/mathutil"
)

var (
	ErrMissingVersion   = errors.New("missing version command")
	ErrDuplicateVersion = errors.New("version declared twice")
	ErrBadVersion       = errors.New("unsupported version")
	ErrDuplicateNode    = errors.New("duplicate node id")
	ErrUnknownNode      = errors.New("unknown node id")
	ErrFrameOrder       = errors.New("frames are not sequential")
	ErrKeyBeforeTime    = errors.New("bone key before any time command")
	ErrDuplicateKey     = errors.New("bone keyed twice in one frame")
	ErrMissingBind      = errors.New("bone has no key in the first frame")
	ErrDuplicateLink    = errors.New("vertex links a bone twice")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingArgument  = errors.New("missing argument")
	ErrUnexpectedEOF    = errors.New("unexpected end of file")
	ErrNoSkeleton       = errors.New("no skeleton frames")
)

// ParseError locates a decoding failure in a source file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("importer: %s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type smdSection int

const (
	smdNone smdSection = iota
	smdNodes
	smdSkeleton
	smdTriangles
)

type smdKey struct {
	pos mathutil.Vec3
	rot mathutil.Angles
}

type smdParser struct {
	path    string
	line    int
	version int
	section smdSection

	bones   []Bone
	byID    map[int]int
	frames  []map[int]smdKey
	lastT   int
	hasTime bool

	part     Part
	material string
	pending  []Vertex
}

// LoadSMD reads a StudioMDL data file. The animation and part are named after
// the file stem.
func LoadSMD(path string) (*FileData, error) {
	f, stem, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSMD(f, path, stem)
}

// ParseSMD decodes an SMD stream. path is only used in error messages.
func ParseSMD(r io.Reader, path, name string) (*FileData, error) {
	p := &smdParser{path: path, byID: make(map[int]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.handle(sc.Text()); err != nil {
			return nil, &ParseError{Path: path, Line: p.line, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", path, err)
	}
	if p.section != smdNone || len(p.pending) > 0 {
		return nil, &ParseError{Path: path, Line: p.line, Err: ErrUnexpectedEOF}
	}
	if p.version == 0 {
		return nil, &ParseError{Path: path, Line: p.line, Err: ErrMissingVersion}
	}
	return p.finish(name)
}

func (p *smdParser) handle(raw string) error {
	if p.section == smdTriangles && p.material == "" {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			return nil
		}
		if line == "end" {
			p.section = smdNone
			return nil
		}
		p.material = line
		return nil
	}

	fields, err := splitFields(stripComment(raw))
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if fields[0] == "end" && p.section != smdNone {
		if p.section == smdTriangles && len(p.pending) > 0 {
			return ErrUnexpectedEOF
		}
		p.section = smdNone
		return nil
	}

	switch p.section {
	case smdNodes:
		return p.node(fields)
	case smdSkeleton:
		return p.skeleton(fields)
	case smdTriangles:
		return p.vertex(fields)
	}

	switch fields[0] {
	case "version":
		if p.version != 0 {
			return ErrDuplicateVersion
		}
		if len(fields) < 2 {
			return ErrMissingArgument
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		if v < 1 || v > 3 {
			return fmt.Errorf("%w: %d", ErrBadVersion, v)
		}
		p.version = v
	case "nodes":
		p.section = smdNodes
	case "skeleton":
		p.section = smdSkeleton
	case "triangles":
		p.section = smdTriangles
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	return nil
}

func (p *smdParser) node(fields []string) error {
	if len(fields) < 3 {
		return ErrMissingArgument
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	parentID, err := strconv.Atoi(fields[2])
	if err != nil {
		return err
	}
	if _, dup := p.byID[id]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, id)
	}
	parent := -1
	if parentID >= 0 {
		idx, ok := p.byID[parentID]
		if !ok {
			return fmt.Errorf("%w: parent %d", ErrUnknownNode, parentID)
		}
		parent = idx
	}
	p.byID[id] = len(p.bones)
	p.bones = append(p.bones, Bone{Name: fields[1], Parent: parent, Orientation: mathutil.QuatIdentity()})
	return nil
}

func (p *smdParser) skeleton(fields []string) error {
	if fields[0] == "time" {
		if len(fields) < 2 {
			return ErrMissingArgument
		}
		t, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		if (!p.hasTime && t != 0) || (p.hasTime && t != p.lastT+1) {
			return fmt.Errorf("%w: time %d", ErrFrameOrder, t)
		}
		p.hasTime = true
		p.lastT = t
		p.frames = append(p.frames, make(map[int]smdKey))
		return nil
	}
	if !p.hasTime {
		return ErrKeyBeforeTime
	}
	nums, err := parseFloats(fields[1:], 6)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	bone, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	frame := p.frames[len(p.frames)-1]
	if _, dup := frame[bone]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, id)
	}
	frame[bone] = smdKey{
		pos: mathutil.Vec3{nums[0], nums[1], nums[2]},
		rot: mathutil.Angles{nums[3], nums[4], nums[5]},
	}
	return nil
}

func (p *smdParser) vertex(fields []string) error {
	if len(fields) < 9 {
		return ErrMissingArgument
	}
	parentID, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	parent, ok := p.byID[parentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, parentID)
	}
	nums, err := parseFloats(fields[1:9], 8)
	if err != nil {
		return err
	}
	v := Vertex{
		Position: mathutil.Vec3{nums[0], nums[1], nums[2]},
		Normal:   mathutil.Vec3{nums[3], nums[4], nums[5]},
		UV:       mathutil.Vec2{nums[6], nums[7]},
	}

	rest := fields[9:]
	if len(rest) > 0 {
		count, err := strconv.Atoi(rest[0])
		if err != nil {
			return err
		}
		rest = rest[1:]
		if len(rest) < count*2 {
			return ErrMissingArgument
		}
		var sum float64
		for i := 0; i < count; i++ {
			id, err := strconv.Atoi(rest[2*i])
			if err != nil {
				return err
			}
			w, err := strconv.ParseFloat(rest[2*i+1], 64)
			if err != nil {
				return err
			}
			bone, ok := p.byID[id]
			if !ok {
				return fmt.Errorf("%w: %d", ErrUnknownNode, id)
			}
			for _, l := range v.Links {
				if l.Bone == bone {
					return fmt.Errorf("%w: %d", ErrDuplicateLink, id)
				}
			}
			v.Links = append(v.Links, Link{Bone: bone, Weight: w})
			sum += w
		}
		if sum == 0 {
			v.Links = nil
		}
		// Version 3 may append extra UV channels; only the first is used.
	}
	if len(v.Links) == 0 {
		v.Links = []Link{{Bone: parent, Weight: 1}}
	}

	p.pending = append(p.pending, v)
	if len(p.pending) < 3 {
		return nil
	}
	base := len(p.part.Vertices)
	p.part.Vertices = append(p.part.Vertices, p.pending...)
	p.part.AddFace(p.material, []int{base, base + 1, base + 2})
	p.pending = p.pending[:0]
	p.material = ""
	return nil
}

func (p *smdParser) finish(name string) (*FileData, error) {
	if len(p.frames) == 0 {
		return nil, &ParseError{Path: p.path, Line: p.line, Err: ErrNoSkeleton}
	}
	bind := p.frames[0]
	for i := range p.bones {
		key, ok := bind[i]
		if !ok {
			return nil, &ParseError{Path: p.path, Line: p.line, Err: fmt.Errorf("%w: %q", ErrMissingBind, p.bones[i].Name)}
		}
		p.bones[i].Position = key.pos
		p.bones[i].Orientation = key.rot.ToQuat()
	}

	anim := Animation{Name: name, FrameCount: len(p.frames), Channels: make(map[int]*Channel)}
	for frame, keys := range p.frames {
		for bone, key := range keys {
			ch, ok := anim.Channels[bone]
			if !ok {
				ch = newChannel()
				anim.Channels[bone] = ch
			}
			ch.Position[frame] = key.pos
			ch.Rotation[frame] = key.rot.ToQuat()
		}
	}

	data := &FileData{
		Up:         mathutil.PositiveZ,
		Forward:    mathutil.NegativeY,
		Skeleton:   p.bones,
		Animations: []Animation{anim},
	}
	if len(p.part.Materials) > 0 {
		p.part.Name = name
		data.Parts = []Part{p.part}
	}
	return data, nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, ErrMissingArgument
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
