package moose

import (
	"errors"
	"fmt"
	"sort"
)

var ErrMatrixNotSquare = errors.New("relationship matrix is not square")

const SelfRelation = "Self"

// RelationshipMatrix 概念 -> 概念 -> 关系标签
type RelationshipMatrix map[string]map[string]string

// OntologicalSchema 写入 GLB 容器的本体文档
type OntologicalSchema struct {
	MooseVersion       string             `json:"mooseVersion" yaml:"mooseVersion"`
	RelationshipMatrix RelationshipMatrix `json:"relationshipMatrix" yaml:"relationshipMatrix"`
	CustomScripts      map[string]string  `json:"customScripts" yaml:"customScripts"`
}

func NewOntologicalSchema() *OntologicalSchema {
	return &OntologicalSchema{
		MooseVersion:       MOOSE_VERSION,
		RelationshipMatrix: RelationshipMatrix{},
		CustomScripts:      map[string]string{},
	}
}

// Concepts 返回排序后的概念名, 行与列的并集
func (m RelationshipMatrix) Concepts() []string {
	set := make(map[string]struct{}, len(m))
	for row, cols := range m {
		set[row] = struct{}{}
		for col := range cols {
			set[col] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m RelationshipMatrix) Relation(from, to string) (string, bool) {
	row, ok := m[from]
	if !ok {
		return "", false
	}
	label, ok := row[to]
	return label, ok
}

// AddConcept 扩展矩阵并保持方阵, 对角线为 Self
func (m RelationshipMatrix) AddConcept(name string) {
	if _, ok := m[name]; ok {
		return
	}
	concepts := m.Concepts()
	row := make(map[string]string, len(concepts)+1)
	for _, c := range concepts {
		row[c] = ""
		if m[c] == nil {
			m[c] = map[string]string{}
		}
		if _, ok := m[c][name]; !ok {
			m[c][name] = ""
		}
	}
	row[name] = SelfRelation
	m[name] = row
}

// SetRelation 设置关系, 缺失的概念会先被加入
func (m RelationshipMatrix) SetRelation(from, to, label string) {
	m.AddConcept(from)
	m.AddConcept(to)
	m[from][to] = label
}

func (m RelationshipMatrix) RemoveConcept(name string) {
	delete(m, name)
	for _, row := range m {
		delete(row, name)
	}
}

// Validate 检查行列概念集合一致. 容器编解码不做此检查
func (m RelationshipMatrix) Validate() error {
	concepts := m.Concepts()
	if len(m) != len(concepts) {
		return fmt.Errorf("%w: %d rows for %d concepts", ErrMatrixNotSquare, len(m), len(concepts))
	}
	for row, cols := range m {
		if len(cols) != len(concepts) {
			return fmt.Errorf("%w: row %q has %d of %d columns", ErrMatrixNotSquare, row, len(cols), len(concepts))
		}
	}
	return nil
}
