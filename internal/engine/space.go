package engine

// SpaceChecker reports the bytes available to the current user on the
// filesystem holding dir.
type SpaceChecker interface {
	Available(dir string) (uint64, error)
}

// SpaceCheckerFunc adapts a plain function to SpaceChecker.
type SpaceCheckerFunc func(dir string) (uint64, error)

func (f SpaceCheckerFunc) Available(dir string) (uint64, error) {
	return f(dir)
}

// DiskSpace queries the operating system.
type DiskSpace struct{}

func (DiskSpace) Available(dir string) (uint64, error) {
	return availableBytes(dir)
}

// CheckSpace fails when required exceeds the free space of dir. It only
// queries the filesystem.
func CheckSpace(checker SpaceChecker, dir string, required int64) error {
	if required <= 0 {
		return nil
	}
	available, err := checker.Available(dir)
	if err != nil {
		return &SpaceQueryError{Dir: dir, Err: err}
	}
	if uint64(required) > available {
		return &InsufficientSpaceError{Dir: dir, Required: uint64(required), Available: available}
	}
	return nil
}
