package entities

import (
	"fmt"

	"github.com/pkg/errors"
)

// BlockRange is an inclusive range of block heights handed to every worker.
type BlockRange struct {
	FromBlock uint64 `json:"fromBlock"`
	ToBlock   uint64 `json:"toBlock"`
}

func (r BlockRange) Validate() error {
	if r.FromBlock > r.ToBlock {
		return errors.Wrapf(ErrInvalidRange, "from [%d] is greater than to [%d]", r.FromBlock, r.ToBlock)
	}
	return nil
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d-%d]", r.FromBlock, r.ToBlock)
}
