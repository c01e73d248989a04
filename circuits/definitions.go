package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// hashChainCircuit proves knowledge of the preimages of an iterated MiMC
// chain ending in Digest. The chain length is the size-class knob for the
// transfer family.
type hashChainCircuit struct {
	Preimages []frontend.Variable
	Digest    frontend.Variable `gnark:",public"`
}

func newHashChainCircuit(n int) *hashChainCircuit {
	return &hashChainCircuit{Preimages: make([]frontend.Variable, n)}
}

func (c *hashChainCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	acc := frontend.Variable(0)
	for _, p := range c.Preimages {
		h.Reset()
		h.Write(acc, p)
		acc = h.Sum()
	}
	api.AssertIsEqual(c.Digest, acc)
	return nil
}

// merkleUpdateCircuit proves a single-leaf update of a MiMC Merkle tree:
// the old root opens to OldLeaf along Path, and replacing it with NewLeaf
// on the same path yields NewRoot. Directions are booleans, one per level.
type merkleUpdateCircuit struct {
	OldRoot    frontend.Variable `gnark:",public"`
	NewRoot    frontend.Variable `gnark:",public"`
	OldLeaf    frontend.Variable
	NewLeaf    frontend.Variable
	Siblings   []frontend.Variable
	Directions []frontend.Variable
}

func newMerkleUpdateCircuit(depth int) *merkleUpdateCircuit {
	return &merkleUpdateCircuit{
		Siblings:   make([]frontend.Variable, depth),
		Directions: make([]frontend.Variable, depth),
	}
}

func (c *merkleUpdateCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	oldAcc := c.OldLeaf
	newAcc := c.NewLeaf
	for i := range c.Siblings {
		api.AssertIsBoolean(c.Directions[i])

		left := api.Select(c.Directions[i], c.Siblings[i], oldAcc)
		right := api.Select(c.Directions[i], oldAcc, c.Siblings[i])
		h.Reset()
		h.Write(left, right)
		oldAcc = h.Sum()

		left = api.Select(c.Directions[i], c.Siblings[i], newAcc)
		right = api.Select(c.Directions[i], newAcc, c.Siblings[i])
		h.Reset()
		h.Write(left, right)
		newAcc = h.Sum()
	}
	api.AssertIsEqual(c.OldRoot, oldAcc)
	api.AssertIsEqual(c.NewRoot, newAcc)
	return nil
}

// digestFoldCircuit commits to a batch of child proof digests by folding
// them into a single public commitment. It runs on the outer curve where
// the aggregation layer verifies base-layer proofs.
type digestFoldCircuit struct {
	Children   []frontend.Variable
	Commitment frontend.Variable `gnark:",public"`
}

func newDigestFoldCircuit(n int) *digestFoldCircuit {
	return &digestFoldCircuit{Children: make([]frontend.Variable, n)}
}

func (c *digestFoldCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Children...)
	api.AssertIsEqual(c.Commitment, h.Sum())
	return nil
}
