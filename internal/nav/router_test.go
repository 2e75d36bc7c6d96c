package nav

import (
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/kickshop/internal/domain"
)

type fakeItems map[int]bool

func (f fakeItems) Has(id int) bool { return f[id] }

func newTestRouter(opts ...RouterOption) *Router {
	items := fakeItems{0: true, 3: true, 7: true, 29: true}
	return NewRouter(append([]RouterOption{WithItems(items)}, opts...)...)
}

func TestRouterStartsAtHome(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.Equal(t, Home, r.Current())
	require.Equal(t, []Route{Home}, r.BackStack())
}

func TestNavigateUpOnRootIsNoop(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.False(t, r.NavigateUp())
	require.Equal(t, []Route{Home}, r.BackStack())
}

func TestNavigatePushAndPop(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.NoError(t, r.Navigate(Detail(3)))
	require.Equal(t, Detail(3), r.Current())
	require.True(t, r.NavigateUp())
	require.Equal(t, Home, r.Current())
}

func TestNavigateUnknownDetailLeavesStack(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.NoError(t, r.Navigate(Cart))
	before := r.BackStack()

	err := r.Navigate(Detail(999))
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, before, r.BackStack())

	err = r.Navigate(Detail(-1))
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, before, r.BackStack())
}

func TestNavigateWithoutResolverRejectsDetail(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	require.ErrorIs(t, r.Navigate(Detail(0)), domain.ErrNotFound)
}

func TestPopUpToHomeInclusiveAlwaysResets(t *testing.T) {
	t.Parallel()
	stacks := [][]Route{
		{Home},
		{Home, Detail(3)},
		{Home, Cart, Detail(7), About},
		{Cart, About},
		{Home, Cart, Home, About},
		{Home, Home},
	}
	for _, stack := range stacks {
		r := RestoreRouter(stack, WithItems(fakeItems{3: true, 7: true}))
		require.NoError(t, r.Navigate(Home, PopUpTo(Home, true)))
		require.Equal(t, []Route{Home}, r.BackStack(), "from %v", stack)
	}
}

func TestPopUpToHomeKeepsRoot(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.NoError(t, r.Navigate(Detail(3)))
	require.NoError(t, r.Navigate(About))
	require.NoError(t, r.Navigate(Cart, PopUpTo(Home, false)))
	require.Equal(t, []Route{Home, Cart}, r.BackStack())
}

func TestPopUpToCollapsesRepeatedTarget(t *testing.T) {
	t.Parallel()
	r := NewRouter()
	require.NoError(t, r.Navigate(Cart))
	require.NoError(t, r.Navigate(Home))
	require.NoError(t, r.Navigate(About))
	require.Equal(t, []Route{Home, Cart, Home, About}, r.BackStack())

	require.NoError(t, r.Navigate(Cart, PopUpTo(Home, false)))
	require.Equal(t, []Route{Home, Cart}, r.BackStack())
}

func TestPopUpToMissingTargetClearsStack(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.NoError(t, r.Navigate(Detail(3)))
	require.NoError(t, r.Navigate(About, PopUpTo(Cart, false)))
	require.Equal(t, []Route{About}, r.BackStack())
}

func TestSingleTopSkipsDuplicate(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	require.NoError(t, r.Navigate(Cart))
	require.NoError(t, r.Navigate(Cart, SingleTop()))
	require.Equal(t, []Route{Home, Cart}, r.BackStack())

	require.NoError(t, r.Navigate(Cart))
	require.Equal(t, []Route{Home, Cart, Cart}, r.BackStack())
}

func TestMaxDepthDropsOldestAboveRoot(t *testing.T) {
	t.Parallel()
	r := newTestRouter(WithMaxDepth(3))
	require.NoError(t, r.Navigate(Detail(0)))
	require.NoError(t, r.Navigate(Detail(3)))
	require.NoError(t, r.Navigate(Detail(7)))
	require.Equal(t, []Route{Home, Detail(3), Detail(7)}, r.BackStack())
}

func TestBackStackIsCopy(t *testing.T) {
	t.Parallel()
	r := newTestRouter()
	s := r.BackStack()
	s[0] = Cart
	require.Equal(t, Home, r.Current())
}
