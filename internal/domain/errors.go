package domain

import "errors"

var (
	// ErrNotFound возвращается, если запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited возвращается провайдером при превышении лимита запросов.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoImage возвращается, если провайдер не вернул изображение.
	ErrNoImage = errors.New("provider returned no image")
	// ErrInvalidOption — ошибка конфигурации запуска, фатальная для всего задания.
	ErrInvalidOption = errors.New("invalid job option")
)
