package contract

import (
	"fmt"
	"strings"

	"github.com/goccy/go-reflect"
)

// Qualifier — это ортогональный семантический квалификатор типа возврата.
type Qualifier string

// SingleValue означает, что значение типа возврата целиком производится
// из одной строки результата, даже если сам тип является коллекцией.
const SingleValue Qualifier = "single-value"

// QualifiedType — это объявленный тип возврата вместе с набором
// квалификаторов. Значение неизменяемо; оно вычисляется один раз на метод
// из маркеров метода, объединенных с маркерами объявляющего контракта.
type QualifiedType struct {
	// Type — объявленный тип возврата.
	Type reflect.Type

	qualifiers map[Qualifier]struct{}
}

// QualifiedTypeOf создает квалифицированный тип из t и набора квалификаторов.
func QualifiedTypeOf(t reflect.Type, qualifiers ...Qualifier) QualifiedType {
	qt := QualifiedType{Type: t}
	if len(qualifiers) > 0 {
		qt.qualifiers = make(map[Qualifier]struct{}, len(qualifiers))
		for _, q := range qualifiers {
			qt.qualifiers[q] = struct{}{}
		}
	}
	return qt
}

// ResolveQualifiedType вычисляет квалифицированный тип возврата метода m,
// объединяя его квалификаторы с квалификаторами контракта c.
func ResolveQualifiedType(c *Contract, m *Method) QualifiedType {
	var qualifiers []Qualifier
	if m.Markers.SingleValue || (c != nil && c.Markers.SingleValue) {
		qualifiers = append(qualifiers, SingleValue)
	}
	return QualifiedTypeOf(m.ReturnType, qualifiers...)
}

// Has сообщает, присутствует ли квалификатор q.
func (qt QualifiedType) Has(q Qualifier) bool {
	_, ok := qt.qualifiers[q]
	return ok
}

// String возвращает представление вида "тип [квалификаторы]".
func (qt QualifiedType) String() string {
	if len(qt.qualifiers) == 0 {
		return fmt.Sprint(qt.Type)
	}
	names := make([]string, 0, len(qt.qualifiers))
	for q := range qt.qualifiers {
		names = append(names, string(q))
	}
	return fmt.Sprintf("%s [%s]", qt.Type, strings.Join(names, ", "))
}
