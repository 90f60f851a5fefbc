package tilemap

import (
	"fmt"
)

// Store разреженное хранилище тайлов: записи в порядке вставки плюс точный индекс key -> позиция.
// Позиции меняются после RemoveAt; вызывающий код всегда заново ищет запись по ключу.
type Store struct {
	entries []TileEntry
	index   map[Key]int
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		entries: make([]TileEntry, 0),
		index:   make(map[Key]int),
	}
}

// Count возвращает количество записей
func (s *Store) Count() int {
	return len(s.entries)
}

// Find возвращает позицию записи с ключом
func (s *Store) Find(key Key) (int, bool) {
	pos, ok := s.index[key]
	return pos, ok
}

// Lookup возвращает запись по ключу
func (s *Store) Lookup(key Key) (*TileEntry, bool) {
	pos, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return &s.entries[pos], true
}

// At возвращает запись по позиции. Указатель действителен до следующей вставки или удаления.
func (s *Store) At(pos int) *TileEntry {
	if pos < 0 || pos >= len(s.entries) {
		return nil
	}
	return &s.entries[pos]
}

// Insert добавляет запись в конец. Дубликат ключа считается ошибкой вызывающего кода, состояние не меняется.
func (s *Store) Insert(entry TileEntry) (int, error) {
	if _, exists := s.index[entry.Key]; exists {
		return -1, fmt.Errorf("%w: %d", ErrDuplicateKey, entry.Key)
	}
	pos := len(s.entries)
	s.entries = append(s.entries, entry)
	s.index[entry.Key] = pos
	return pos, nil
}

// RemoveAt удаляет запись по позиции, сохраняя порядок остальных
func (s *Store) RemoveAt(pos int) (TileEntry, error) {
	if pos < 0 || pos >= len(s.entries) {
		return TileEntry{}, fmt.Errorf("%w: %d of %d", ErrPositionOutOfRange, pos, len(s.entries))
	}
	removed := s.entries[pos]
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	delete(s.index, removed.Key)

	// Сдвигаем индексы всех последующих записей
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i].Key] = i
	}
	return removed, nil
}

// Each обходит записи в порядке хранения, пока fn возвращает true.
// fn не должна изменять состав хранилища.
func (s *Store) Each(fn func(pos int, e *TileEntry) bool) {
	for i := range s.entries {
		if !fn(i, &s.entries[i]) {
			return
		}
	}
}

// Keys возвращает копию ключей в порядке хранения
func (s *Store) Keys() []Key {
	keys := make([]Key, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Records возвращает сохраняемые данные всех записей
func (s *Store) Records() []Record {
	out := make([]Record, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Record()
	}
	return out
}

// Reset очищает хранилище без уничтожения экземпляров; экземпляры освобождает вызывающий код
func (s *Store) Reset() {
	s.entries = s.entries[:0]
	s.index = make(map[Key]int)
}

// Validate проверяет согласованность индекса и уникальность ключей
func (s *Store) Validate() error {
	if len(s.index) != len(s.entries) {
		return fmt.Errorf("tilemap: index size %d != entries %d", len(s.index), len(s.entries))
	}
	for i, e := range s.entries {
		pos, ok := s.index[e.Key]
		if !ok || pos != i {
			return fmt.Errorf("tilemap: key %d indexed at %d, stored at %d", e.Key, pos, i)
		}
		if e.Template.IsNone() {
			return fmt.Errorf("tilemap: entry %d has no template", e.Key)
		}
	}
	return nil
}
