package config_test

import (
	"testing"

	"github.com/goccy/go-reflect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dao-framework/dao/config"
	"github.com/x-research-team/dao-framework/dao/contract"
	"github.com/x-research-team/dao-framework/dao/database"
	"github.com/x-research-team/dao-framework/dao/mapper"
)

// keyMapper — это стратегия отображения с указательным приемником,
// создаваемая без аргументов.
type keyMapper struct{}

func (m *keyMapper) MappedType() reflect.Type {
	return reflect.TypeOf(int64(0))
}

func (m *keyMapper) MapRow(rows database.Rows) (any, error) {
	var v int64
	if err := rows.Scan(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// notAMapper не реализует mapper.RowMapper.
type notAMapper struct{}

// Тест реестра возможностей: повторное обращение возвращает тот же экземпляр.
func TestRegistry_SameInstance(t *testing.T) {
	t.Parallel()

	registry := config.NewRegistry()

	first := config.Get[config.RowMappers](registry)
	second := config.Get[config.RowMappers](registry)

	assert.Same(t, first, second, "Реестр должен возвращать один и тот же экземпляр возможности")
}

// Тест идемпотентности регистрации: повторная регистрация стратегии для того
// же отображаемого типа замещает предыдущую, а не дублирует ее.
func TestRowMappers_RegisterIdempotent(t *testing.T) {
	t.Parallel()

	mappers := &config.RowMappers{}
	first := &keyMapper{}
	second := &keyMapper{}

	mappers.Register(first)
	mappers.Register(second)

	resolved, ok := mappers.For(reflect.TypeOf(int64(0)))
	require.True(t, ok, "Стратегия должна быть зарегистрирована")
	assert.Same(t, second, resolved, "Повторная регистрация должна заместить предыдущую стратегию")
}

// Тест разрешения: при отсутствии регистрации синтезируется типо-зависимая
// стратегия.
func TestRowMappers_ResolveFallback(t *testing.T) {
	t.Parallel()

	mappers := &config.RowMappers{}

	resolved, err := mappers.Resolve(reflect.TypeOf(int64(0)))
	require.NoError(t, err, "Разрешение скалярного типа не должно вызывать ошибку")
	assert.Equal(t, reflect.TypeOf(int64(0)), resolved.MappedType())
}

// Тест конфигуратора: регистрация экземпляра объявленного типа стратегии.
func TestRegisterRowMapper_Configure(t *testing.T) {
	t.Parallel()

	registry := config.NewRegistry()
	declaring := contract.New("VideoDao")
	configurer := config.NewRegisterRowMapper(reflect.TypeOf(keyMapper{}))

	err := configurer.ConfigureForType(registry, declaring)
	require.NoError(t, err, "Регистрация стратегии не должна вызывать ошибку")

	_, ok := config.Get[config.RowMappers](registry).For(reflect.TypeOf(int64(0)))
	assert.True(t, ok, "Стратегия должна появиться в реестре")
}

// Тест согласованности областей: применение в области метода равносильно
// применению в области типа.
func TestRegisterRowMapper_MethodScopeMatchesTypeScope(t *testing.T) {
	t.Parallel()

	declaring := contract.New("VideoDao")
	method := contract.NewMethod[int64]("insert", "insert into videos (id) values ($1)")

	typeScoped := config.NewRegistry()
	methodScoped := config.NewRegistry()
	configurer := config.NewRegisterRowMapper(reflect.TypeOf(keyMapper{}))

	require.NoError(t, configurer.ConfigureForType(typeScoped, declaring))
	require.NoError(t, configurer.ConfigureForMethod(methodScoped, declaring, method))

	_, typeOK := config.Get[config.RowMappers](typeScoped).For(reflect.TypeOf(int64(0)))
	_, methodOK := config.Get[config.RowMappers](methodScoped).For(reflect.TypeOf(int64(0)))
	assert.Equal(t, typeOK, methodOK, "Эффект в области метода должен совпадать с эффектом в области типа")
}

// Тест ошибки конфигуратора: тип, не реализующий стратегию отображения,
// отвергается с указанием типа.
func TestRegisterRowMapper_NotAMapper(t *testing.T) {
	t.Parallel()

	registry := config.NewRegistry()
	configurer := config.NewRegisterRowMapper(reflect.TypeOf(notAMapper{}))

	err := configurer.ConfigureForType(registry, contract.New("VideoDao"))
	require.Error(t, err, "Регистрация типа без реализации должна вызывать ошибку")
	assert.Contains(t, err.Error(), "не удалось создать экземпляр стратегии отображения", "Текст ошибки должен описывать сбой создания")
	assert.Contains(t, err.Error(), "notAMapper", "Текст ошибки должен называть тип стратегии")
}

// Тест ошибки конфигуратора: тип, не создаваемый без аргументов.
func TestRegisterRowMapper_Uninstantiable(t *testing.T) {
	t.Parallel()

	registry := config.NewRegistry()
	configurer := config.NewRegisterRowMapper(reflect.TypeOf(func() {}))

	err := configurer.ConfigureForType(registry, contract.New("VideoDao"))
	require.Error(t, err, "Регистрация несоздаваемого типа должна вызывать ошибку")
	assert.Contains(t, err.Error(), "не может быть создан без аргументов", "Текст ошибки должен описывать причину")
}

// Проверка соответствия интерфейсу на уровне компиляции.
var _ mapper.RowMapper = (*keyMapper)(nil)
