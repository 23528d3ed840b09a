package config

import (
	"fmt"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/mapper"
)

// Configurer — это единица, применяющая регистрационный побочный эффект к
// общему набору конфигурации в ответ на декларативный маркер. Применение в
// области метода и в области типа должно быть поведенчески согласовано.
type Configurer interface {
	// ConfigureForMethod применяет эффект для маркера, объявленного на методе.
	ConfigureForMethod(reg *Registry, c *contract.Contract, m *contract.Method) error

	// ConfigureForType применяет эффект для маркера, объявленного на контракте.
	ConfigureForType(reg *Registry, c *contract.Contract) error
}

// registerRowMapper — это конфигуратор маркера регистрации стратегии
// отображения: он создает экземпляр объявленного типа стратегии и помещает
// его в реестр RowMappers.
type registerRowMapper struct {
	mapperType reflect.Type
}

// NewRegisterRowMapper создает конфигуратор, регистрирующий экземпляр
// стратегии отображения типа mapperType.
func NewRegisterRowMapper(mapperType reflect.Type) Configurer {
	return &registerRowMapper{mapperType: mapperType}
}

// ConfigureForMethod применяет тот же эффект, что и применение в области типа.
func (rc *registerRowMapper) ConfigureForMethod(reg *Registry, c *contract.Contract, _ *contract.Method) error {
	return rc.ConfigureForType(reg, c)
}

// ConfigureForType создает экземпляр стратегии и регистрирует его.
func (rc *registerRowMapper) ConfigureForType(reg *Registry, _ *contract.Contract) error {
	rm, err := instantiateMapper(rc.mapperType)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр стратегии отображения %s: %w", rc.mapperType, err)
	}

	Get[RowMappers](reg).Register(rm)
	return nil
}

// instantiateMapper создает значение типа t без аргументов и проверяет,
// что оно реализует mapper.RowMapper.
func instantiateMapper(t reflect.Type) (mapper.RowMapper, error) {
	if t == nil {
		return nil, fmt.Errorf("тип стратегии не задан")
	}

	var instance any
	switch t.Kind() {
	case reflect.Ptr:
		instance = reflect.New(t.Elem()).Interface()
	case reflect.Struct:
		instance = reflect.New(t).Elem().Interface()
	default:
		return nil, fmt.Errorf("тип %s не может быть создан без аргументов", t)
	}

	rm, ok := instance.(mapper.RowMapper)
	if !ok {
		// Стратегия могла реализовать интерфейс через указательный приемник.
		if t.Kind() == reflect.Struct {
			if prm, pok := reflect.New(t).Interface().(mapper.RowMapper); pok {
				return prm, nil
			}
		}
		return nil, fmt.Errorf("тип %s не реализует mapper.RowMapper", t)
	}
	return rm, nil
}
