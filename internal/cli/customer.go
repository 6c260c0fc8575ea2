package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/location"
)

func NewCustomerCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customer",
		Aliases: []string{"customers"},
		Short:   "Manage customers",
	}

	cmd.AddCommand(newCustomerAddCmd(deps))
	cmd.AddCommand(newCustomerListCmd(deps))
	cmd.AddCommand(newCustomerShowCmd(deps))
	cmd.AddCommand(newCustomerEditCmd(deps))
	cmd.AddCommand(newCustomerDeleteCmd(deps))
	cmd.AddCommand(newCustomerNearbyCmd(deps))

	return cmd
}

// customerFlags are the editable fields shared by add and edit.
type customerFlags struct {
	name, address, phone string
	lat, lon             float64
}

func (f *customerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Customer name")
	cmd.Flags().StringVarP(&f.address, "address", "a", "", "Address (also used as the clinic name)")
	cmd.Flags().StringVarP(&f.phone, "phone", "p", "", "Phone number")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude (defaults to the current position)")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Longitude (defaults to the current position)")
}

func newCustomerAddCmd(deps *Dependencies) *cobra.Command {
	var f customerFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pos, err := positionFlags(ctx, cmd, deps, f.lat, f.lon)
			if err != nil {
				return err
			}

			c, err := deps.Services.Customers.Create(ctx, customer.Input{
				Name:      f.name,
				Address:   f.address,
				Phone:     f.phone,
				Latitude:  pos.Latitude,
				Longitude: pos.Longitude,
			})
			if err != nil {
				return err
			}
			formatter(cmd).Success(fmt.Sprintf("Customer added: %s (%s)", c.Name, c.ID))
			return nil
		},
	}

	f.register(cmd)
	cmd.MarkFlagRequired("name")
	return cmd
}

func newCustomerListCmd(deps *Dependencies) *cobra.Command {
	var byDistance bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := deps.Services.Customers.List(ctx)
			if err != nil {
				return err
			}

			out := formatter(cmd)
			if len(list) == 0 {
				out.Info("No customers found")
				return nil
			}

			if byDistance {
				pos, err := deps.Services.Location(ctx).Current(ctx)
				if err != nil {
					return err
				}
				list = customer.ByDistance(list, pos)
			}

			out.CustomerListHeader(len(list))
			for _, c := range list {
				out.CustomerItem(c)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&byDistance, "by-distance", "d", false, "Sort by distance from the current position")
	return cmd
}

func newCustomerShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deps.Services.Customers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter(cmd).CustomerDetail(c)
			return nil
		},
	}
}

func newCustomerEditCmd(deps *Dependencies) *cobra.Command {
	var f customerFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a customer's details",
		Long:  "Change a customer's details. Only the given flags are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := deps.Services.Customers.Get(ctx, args[0])
			if err != nil {
				return err
			}

			in := customer.Input{
				Name:      c.Name,
				Address:   c.Address,
				Phone:     c.Phone,
				Latitude:  c.Latitude,
				Longitude: c.Longitude,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = f.name
			}
			if flags.Changed("address") {
				in.Address = f.address
			}
			if flags.Changed("phone") {
				in.Phone = f.phone
			}
			if flags.Changed("lat") {
				in.Latitude = f.lat
			}
			if flags.Changed("lon") {
				in.Longitude = f.lon
			}

			c, err = deps.Services.Customers.Update(ctx, c.ID, in)
			if err != nil {
				return err
			}
			formatter(cmd).Success(fmt.Sprintf("Customer updated: %s", c.Name))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newCustomerDeleteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete customers",
		Long:  "Delete customers. Their recordings are kept.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd)
			for _, id := range args {
				if err := deps.Services.Customers.Delete(cmd.Context(), id); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Customer deleted: %s", id))
			}
			return nil
		},
	}
}

func newCustomerNearbyCmd(deps *Dependencies) *cobra.Command {
	var radius, lat, lon float64
	var watch bool

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List customers near the current position",
		Long: "List customers within --radius km of the current position, nearest first.\n" +
			"With --watch the list is reprinted whenever the position changes (Ctrl+C to stop).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := formatter(cmd)

			show := func(pos geo.Coords) {
				list, err := deps.Services.Customers.Nearby(ctx, pos, radius)
				if err != nil {
					errFormatter().Error(err.Error())
					return
				}
				out.Header(fmt.Sprintf("📍 %s (%d within %.1fkm):", pos, len(list), radiusOrDefault(radius)))
				for _, c := range list {
					out.CustomerItem(c)
				}
				if len(list) == 0 {
					out.Info("No customers nearby")
				}
			}

			if !watch {
				pos, err := positionFlags(ctx, cmd, deps, lat, lon)
				if err != nil {
					return err
				}
				show(pos)
				return nil
			}

			var provider location.Provider = deps.Services.Location(ctx)
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				pos, err := positionFlags(ctx, cmd, deps, lat, lon)
				if err != nil {
					return err
				}
				provider = location.Fixed(pos)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			err := location.Watch(ctx, provider, deps.Config.Location.PollInterval, location.DefaultMinDistance, show)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Float64VarP(&radius, "radius", "r", customer.DefaultRadiusKm, "Radius in km")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (defaults to the current position)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude (defaults to the current position)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep watching the position")
	return cmd
}

// positionFlags returns --lat/--lon when given, otherwise the current
// position.
func positionFlags(ctx context.Context, cmd *cobra.Command, deps *Dependencies, lat, lon float64) (geo.Coords, error) {
	latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	if latSet != lonSet {
		return geo.Coords{}, fmt.Errorf("--lat and --lon must be given together")
	}
	if latSet {
		pos := geo.Coords{Latitude: lat, Longitude: lon}
		return pos, pos.Validate()
	}
	return deps.Services.Location(ctx).Current(ctx)
}

func radiusOrDefault(r float64) float64 {
	if r <= 0 {
		return customer.DefaultRadiusKm
	}
	return r
}
