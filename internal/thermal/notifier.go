package thermal

// Notifier is the platform thermal status service.
type Notifier interface {
	// AddListener registers fn for status transitions and returns an id
	// for RemoveListener.
	AddListener(fn func(Status)) int
	RemoveListener(id int)
	CurrentStatus() Status
}

// Forecaster is implemented by notifiers that can forecast headroom.
// Headroom returns false when no forecast is available.
type Forecaster interface {
	Headroom(forecastSeconds int) (float64, bool)
}
