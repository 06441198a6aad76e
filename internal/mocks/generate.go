package mocks

//go:generate mockery --name EventStore --srcpkg github.com/xkorin-lab/xkorin/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name DeadLetterStore --srcpkg github.com/xkorin-lab/xkorin/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
