package main

import (
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/talkincode/cafestock/internal/controller"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/inventory"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		search, typ, category, status, active string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List products matching the filters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.session(cmd)
			crit := inventory.Criteria{
				Search:      search,
				Type:        domain.Type(typ),
				Category:    category,
				StockStatus: domain.StockLevel(status),
			}
			if active != "" {
				v, err := cast.ToBoolE(active)
				if err != nil {
					return err
				}
				crit.Active = &v
			}
			s.view.SetFilters(crit)
			s.ctrl.HandleFilterChange()
			s.ctrl.ReportLowStock()
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "query", "q", "", "search name, description and category")
	cmd.Flags().StringVar(&typ, "type", "", "coffee, food, drink or dessert")
	cmd.Flags().StringVar(&category, "category", "", "exact category")
	cmd.Flags().StringVar(&status, "stock-status", "", "normal, low or out")
	cmd.Flags().StringVar(&active, "active", "", "true or false")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.session(cmd).ctrl.ShowEditModal(args[0])
		},
	}
}

// productFlags binds the product form fields to command flags
type productFlags struct {
	name, typ, category, description string
	price                            float64
	stock                            int
	active                           bool
}

func (f *productFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().StringVar(&f.typ, "type", "", "coffee, food, drink or dessert")
	cmd.Flags().StringVar(&f.category, "category", "", "category within the type")
	cmd.Flags().Float64Var(&f.price, "price", 0, "unit price")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "units in stock")
	cmd.Flags().StringVar(&f.description, "description", "", "free text description")
	cmd.Flags().BoolVar(&f.active, "active", true, "offer the product")
}

// form returns the fields set on the command line, or all of them when all is true
func (f *productFlags) form(cmd *cobra.Command, all bool) controller.FormData {
	values := map[string]interface{}{
		"name":        f.name,
		"type":        f.typ,
		"category":    f.category,
		"price":       f.price,
		"stock":       f.stock,
		"description": f.description,
		"active":      f.active,
	}
	data := controller.FormData{}
	for key, value := range values {
		if all || cmd.Flags().Changed(key) {
			data[key] = value
		}
	}
	return data
}

func newAddCmd(c *cli) *cobra.Command {
	f := &productFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.session(cmd)
			s.ctrl.ShowAddModal()
			s.view.SetForm("", f.form(cmd, true))
			_, err := s.ctrl.HandleFormSubmit()
			return err
		},
	}
	f.bind(cmd)
	return cmd
}

func newUpdateCmd(c *cli) *cobra.Command {
	f := &productFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.session(cmd)
			if err := s.ctrl.ShowEditModal(args[0]); err != nil {
				return err
			}
			s.view.SetForm(args[0], f.form(cmd, false))
			_, err := s.ctrl.HandleFormSubmit()
			return err
		},
	}
	f.bind(cmd)
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a product",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.session(cmd).ctrl.DeleteProduct(args[0])
			return err
		},
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inventory statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.session(cmd).ctrl.RenderStats()
			return nil
		},
	}
}
