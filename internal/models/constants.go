package models

const (
	// DateLayout формат календарной даты бронирования
	DateLayout = "2006-01-02"
	// TimeLayout формат слота
	TimeLayout = "15:04"

	// WalkInUserID marks bookings created by staff for guests without an account.
	WalkInUserID = "walk_in"
	// WalkInDefaultName is used when staff do not record a guest name.
	WalkInDefaultName = "Walk-in"

	// ConfirmationCodeLength длина кода подтверждения
	ConfirmationCodeLength = 6

	// DefaultAdvanceBookingDays горизонт бронирования по умолчанию
	DefaultAdvanceBookingDays = 30
	// DefaultCapacityPerSlot вместимость слота по умолчанию
	DefaultCapacityPerSlot = 10
	// DefaultTableTurningTime время оборота стола в минутах
	DefaultTableTurningTime = 90

	// DefaultListLimit предел выборки справочника по умолчанию
	DefaultListLimit = 500

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = 60 * 60 // 1 час в секундах
)
