package eo

import (
	"errors"
	"testing"
)

func TestCubeSelect(t *testing.T) {
	g0 := fillGrid(t, map[uint8]int{ClassVegetation: 10})
	g1 := fillGrid(t, map[uint8]int{ClassWater: 10})
	g2 := fillGrid(t, map[uint8]int{ClassBareSoil: 10})
	c := sclCube(t, g0, g1, g2)

	sub, err := c.Select([]int{0, 2})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sub.Scenes() != 2 {
		t.Fatalf("selected cube has %d scenes, want 2", sub.Scenes())
	}
	if sub.Times[0] != c.Times[0] || sub.Times[1] != c.Times[2] {
		t.Errorf("selected times = %v, want scenes 0 and 2", sub.Times)
	}
	if sub.SCL[1] != g2 {
		t.Error("selected grids should share storage with the source")
	}
	if c.Scenes() != 3 {
		t.Errorf("source cube modified: %d scenes, want 3", c.Scenes())
	}
}

func TestCubeSelectOutOfBounds(t *testing.T) {
	c := sclCube(t, NewClassGrid(2, 2))
	if _, err := c.Select([]int{5}); err == nil {
		t.Fatal("expected an out of bounds error")
	}
}

func TestCubeValidate(t *testing.T) {
	t.Run("empty cube", func(t *testing.T) {
		c := &Cube{}
		if err := c.Validate(); !errors.Is(err, ErrNoScenes) {
			t.Errorf("err = %v, want ErrNoScenes", err)
		}
	})

	t.Run("scene count mismatch", func(t *testing.T) {
		c := sclCube(t, NewClassGrid(2, 2))
		c.SCL = append(c.SCL, NewClassGrid(2, 2))
		if err := c.Validate(); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("err = %v, want ErrShapeMismatch", err)
		}
	})

	t.Run("grid shape mismatch", func(t *testing.T) {
		c := sclCube(t, NewClassGrid(2, 2))
		c.Spectral = map[string][]*FloatGrid{BandRed: {NewFloatGrid(3, 3)}}
		if err := c.Validate(); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("err = %v, want ErrShapeMismatch", err)
		}
	})

	t.Run("consistent cube", func(t *testing.T) {
		c := sclCube(t, NewClassGrid(10, 10))
		if err := c.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})
}
