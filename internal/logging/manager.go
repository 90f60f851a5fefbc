package logging

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Компоненты редактора с собственными файлами логов
const (
	ComponentEditor   = "editor"
	ComponentDocument = "document"
	ComponentStorage  = "storage"
	ComponentEventBus = "eventbus"
	ComponentScene    = "scene"
)

// LoggerManager реестр логгеров по компонентам: один файл на компонент
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var globalManager = &LoggerManager{loggers: make(map[string]*Logger)}

// GetLoggerManager возвращает реестр логгеров процесса
func GetLoggerManager() *LoggerManager {
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger %s: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger как GetLogger, но при ошибке файла пишет только в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err == nil {
		return l
	}
	opts := currentOptions()
	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: opts.MinConsoleLevel,
		minFileLevel:    ERROR,
	}
}

// CloseAll закрывает файлы всех компонентов и очищает реестр
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", component, err))
		}
	}
	clear(lm.loggers)
	return errors.Join(errs...)
}

// ListComponents имена компонентов по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return slices.Sorted(maps.Keys(lm.loggers))
}

// SetLogLevel меняет пороги уровней уже созданного логгера компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	l, ok := lm.loggers[component]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("logger %s not registered", component)
	}
	l.setLevels(consoleLevel, fileLevel)
	return nil
}

// GetComponentLogger логгер компонента из реестра процесса
func GetComponentLogger(component string) *Logger {
	return globalManager.MustGetLogger(component)
}

func GetEditorLogger() *Logger   { return GetComponentLogger(ComponentEditor) }
func GetDocumentLogger() *Logger { return GetComponentLogger(ComponentDocument) }
func GetStorageLogger() *Logger  { return GetComponentLogger(ComponentStorage) }
func GetEventBusLogger() *Logger { return GetComponentLogger(ComponentEventBus) }
