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
	ErrBogusIndex      = errors.New("index out of range")
	ErrDuplicateObject = errors.New("object name used twice")
	ErrUnknownKeyword  = errors.New("unknown keyword")
)

// defaultObjectName is used for objects declared without a name.
const defaultObjectName = "Object"

// objIgnored are keywords accepted without effect.
var objIgnored = map[string]bool{
	"mtllib": true, "s": true, "g": true, "vp": true, "l": true, "p": true,
	"usemap": true, "maplib": true, "shadow_obj": true, "trace_obj": true,
	"lod": true, "bevel": true, "c_interp": true, "d_interp": true,
	"cstype": true, "deg": true, "bmat": true, "step": true, "curv": true,
	"curv2": true, "surf": true, "parm": true, "trim": true, "hole": true,
	"scrv": true, "sp": true, "end": true, "con": true, "mg": true,
	"ctech": true, "stech": true,
}

type objParser struct {
	path string
	line int

	positions []mathutil.Vec3
	texcoords []mathutil.Vec2
	normals   []mathutil.Vec3

	parts    []Part
	current  int
	material string
	warned   map[int]bool
	warnings []string
}

// LoadOBJ reads a Wavefront OBJ file into a single-bone FileData.
func LoadOBJ(path string) (*FileData, error) {
	f, stem, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, _, err := ParseOBJ(f, path, stem)
	return data, err
}

// ParseOBJ decodes an OBJ stream. The returned warnings name objects that
// used faces without a material.
func ParseOBJ(r io.Reader, path, name string) (*FileData, []string, error) {
	p := &objParser{path: path, current: -1, warned: make(map[int]bool)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.handle(sc.Text()); err != nil {
			return nil, nil, &ParseError{Path: path, Line: p.line, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("importer: read %s: %w", path, err)
	}

	data := &FileData{
		Up:       mathutil.PositiveZ,
		Forward:  mathutil.PositiveX,
		Skeleton: []Bone{{Name: "default", Parent: -1, Orientation: mathutil.QuatIdentity()}},
		Animations: []Animation{{
			Name:       name,
			FrameCount: 1,
			Channels:   map[int]*Channel{},
		}},
	}
	for _, part := range p.parts {
		if len(part.Materials) > 0 {
			data.Parts = append(data.Parts, part)
		}
	}
	return data, p.warnings, nil
}

func (p *objParser) handle(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" || line[0] == '#' {
		return nil
	}
	fields := strings.Fields(line)
	args := fields[1:]

	switch fields[0] {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, mathutil.Vec3{v[0], v[1], v[2]})
	case "vt":
		if len(args) == 0 {
			return ErrMissingArgument
		}
		vals := []float64{0, 0}
		for i := 0; i < len(args) && i < 2; i++ {
			f, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return err
			}
			vals[i] = f
		}
		p.texcoords = append(p.texcoords, mathutil.Vec2{vals[0], vals[1]})
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, mathutil.Vec3{v[0], v[1], v[2]})
	case "o":
		objName := strings.TrimSpace(strings.TrimPrefix(line, "o"))
		if objName == "" {
			objName = defaultObjectName
		}
		for _, part := range p.parts {
			if part.Name == objName {
				return fmt.Errorf("%w: %q", ErrDuplicateObject, objName)
			}
		}
		if p.current >= 0 && p.parts[p.current].Name == defaultObjectName && len(p.parts[p.current].Vertices) == 0 {
			p.parts[p.current].Name = objName
			return nil
		}
		p.parts = append(p.parts, Part{Name: objName})
		p.current = len(p.parts) - 1
	case "usemtl":
		p.material = strings.TrimSpace(strings.TrimPrefix(line, "usemtl"))
	case "f":
		return p.face(args)
	default:
		if !objIgnored[fields[0]] {
			return fmt.Errorf("%w: %q", ErrUnknownKeyword, fields[0])
		}
	}
	return nil
}

func (p *objParser) face(args []string) error {
	if p.current < 0 {
		p.parts = append(p.parts, Part{Name: defaultObjectName})
		p.current = 0
	}
	part := &p.parts[p.current]

	var points []Vertex
	for _, tok := range args {
		if strings.HasPrefix(tok, "#") {
			break
		}
		v, err := p.point(tok)
		if err != nil {
			return err
		}
		points = append(points, v)
	}
	if len(points) < 3 {
		return nil
	}

	// Points without normals get the flat face normal.
	flat := points[1].Position.Sub(points[0].Position).Cross(points[2].Position.Sub(points[0].Position)).Normalize()
	for i := range points {
		if points[i].Normal == (mathutil.Vec3{}) {
			points[i].Normal = flat
		}
	}

	material := p.material
	if material == "" {
		material = DefaultMaterial
		if !p.warned[p.current] {
			p.warned[p.current] = true
			p.warnings = append(p.warnings, fmt.Sprintf("object %q has faces without a material, using %s", part.Name, DefaultMaterial))
		}
	}

	base := len(part.Vertices)
	face := make([]int, len(points))
	for i := range points {
		face[i] = base + i
	}
	part.Vertices = append(part.Vertices, points...)
	part.AddFace(material, face)
	return nil
}

func (p *objParser) point(tok string) (Vertex, error) {
	refs := strings.Split(tok, "/")
	v := Vertex{Links: []Link{{Bone: 0, Weight: 1}}}

	pi, err := objIndex(refs[0], len(p.positions))
	if err != nil {
		return v, err
	}
	v.Position = p.positions[pi]

	if len(refs) > 1 && refs[1] != "" {
		ti, err := objIndex(refs[1], len(p.texcoords))
		if err != nil {
			return v, err
		}
		v.UV = p.texcoords[ti]
	}
	if len(refs) > 2 && refs[2] != "" {
		ni, err := objIndex(refs[2], len(p.normals))
		if err != nil {
			return v, err
		}
		v.Normal = p.normals[ni]
	}
	return v, nil
}

// objIndex resolves a 1-based or negative relative OBJ index.
func objIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	}
	return 0, fmt.Errorf("%w: %d of %d", ErrBogusIndex, i, n)
}
