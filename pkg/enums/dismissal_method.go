package enums

// DismissalMethod records how a student left school on a dismissed pickup event.
type DismissalMethod string

// DismissalMethodCarline is stamped by the dismisser releasing a student to a waiting car.
const DismissalMethodCarline DismissalMethod = "CARLINE"

func (m DismissalMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known DismissalMethod.
func (m DismissalMethod) IsValid() bool {
	return m == DismissalMethodCarline
}
