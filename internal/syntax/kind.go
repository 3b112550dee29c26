// Package syntax hand-parses preprocessed SourcePawn/AMXXPawn text into an
// opaque, infallible syntax tree: parsing never fails outright, malformed
// input surfaces as Error nodes inside an otherwise-complete tree (spec.md
// §4.2). Every downstream component (item tree, body lowering, name
// resolution) addresses the tree only through this package's vocabulary.
package syntax

// Kind is a node's tag. This is a scoped-down subset of the ~270-tag grammar
// a full tree-sitter-sourcepawn grammar exposes (see generated.rs's TSKind in
// the reference implementation) — just the named, semantically meaningful
// productions this pipeline's components actually walk. Anonymous terminal
// kinds (punctuation, keyword tokens) and internal repeat-node plumbing from
// the original grammar are collapsed into the parent production here, since
// nothing above the parser needs to address them by kind.
type Kind int

const (
	KindError Kind = iota
	KindSourceFile

	// Items
	KindFunctionDeclaration
	KindFunctionDefinition
	KindParameterDeclarations
	KindParameterDeclaration
	KindGlobalVariableDeclaration
	KindOldGlobalVariableDeclaration
	KindVariableDeclaration
	KindVariableDeclarationStatement
	KindOldVariableDeclarationStatement
	KindEnum
	KindEnumEntries
	KindEnumEntry
	KindEnumStruct
	KindEnumStructField
	KindEnumStructMethod
	KindTypedef
	KindTypeset
	KindTypedefExpression
	KindFuncenum
	KindFuncenumMember
	KindFunctag
	KindMethodmap
	KindMethodmapMethod
	KindMethodmapMethodConstructor
	KindMethodmapMethodDestructor
	KindMethodmapNative
	KindMethodmapProperty
	KindMethodmapPropertyGetter
	KindMethodmapPropertySetter
	KindMethodmapAlias

	// Statements
	KindBlock
	KindForStatement
	KindWhileStatement
	KindDoWhileStatement
	KindBreakStatement
	KindContinueStatement
	KindConditionStatement
	KindSwitchStatement
	KindSwitchCase
	KindExpressionStatement
	KindReturnStatement
	KindDeleteStatement

	// Expressions
	KindAssignmentExpression
	KindCallExpression
	KindCallArguments
	KindArrayIndexedAccess
	KindParenthesizedExpression
	KindTernaryExpression
	KindFieldAccess
	KindScopeAccess
	KindUnaryExpression
	KindBinaryExpression
	KindUpdateExpression
	KindSizeofExpression
	KindViewAs
	KindNewExpression
	KindArrayLiteral

	// Leaves
	KindIdentifier
	KindBuiltinType
	KindArrayType
	KindVisibility
	KindIntLiteral
	KindFloatLiteral
	KindCharLiteral
	KindStringLiteral
	KindBoolLiteral
	KindNull
	KindThis
)

var kindNames = map[Kind]string{
	KindError:                           "ERROR",
	KindSourceFile:                      "source_file",
	KindFunctionDeclaration:             "function_declaration",
	KindFunctionDefinition:              "function_definition",
	KindParameterDeclarations:           "parameter_declarations",
	KindParameterDeclaration:            "parameter_declaration",
	KindGlobalVariableDeclaration:       "global_variable_declaration",
	KindOldGlobalVariableDeclaration:    "old_global_variable_declaration",
	KindVariableDeclaration:             "variable_declaration",
	KindVariableDeclarationStatement:    "variable_declaration_statement",
	KindOldVariableDeclarationStatement: "old_variable_declaration_statement",
	KindEnum:                            "enum",
	KindEnumEntries:                     "enum_entries",
	KindEnumEntry:                       "enum_entry",
	KindEnumStruct:                      "enum_struct",
	KindEnumStructField:                 "enum_struct_field",
	KindEnumStructMethod:                "enum_struct_method",
	KindTypedef:                         "typedef",
	KindTypeset:                         "typeset",
	KindTypedefExpression:               "typedef_expression",
	KindFuncenum:                        "funcenum",
	KindFuncenumMember:                  "funcenum_member",
	KindFunctag:                         "functag",
	KindMethodmap:                       "methodmap",
	KindMethodmapMethod:                 "methodmap_method",
	KindMethodmapMethodConstructor:      "methodmap_method_constructor",
	KindMethodmapMethodDestructor:       "methodmap_method_destructor",
	KindMethodmapNative:                 "methodmap_native",
	KindMethodmapProperty:               "methodmap_property",
	KindMethodmapPropertyGetter:         "methodmap_property_getter",
	KindMethodmapPropertySetter:         "methodmap_property_setter",
	KindMethodmapAlias:                  "methodmap_alias",
	KindBlock:                           "block",
	KindForStatement:                    "for_statement",
	KindWhileStatement:                  "while_statement",
	KindDoWhileStatement:                "do_while_statement",
	KindBreakStatement:                  "break_statement",
	KindContinueStatement:               "continue_statement",
	KindConditionStatement:              "condition_statement",
	KindSwitchStatement:                 "switch_statement",
	KindSwitchCase:                      "switch_case",
	KindExpressionStatement:             "expression_statement",
	KindReturnStatement:                 "return_statement",
	KindDeleteStatement:                 "delete_statement",
	KindAssignmentExpression:            "assignment_expression",
	KindCallExpression:                  "call_expression",
	KindCallArguments:                   "call_arguments",
	KindArrayIndexedAccess:              "array_indexed_access",
	KindParenthesizedExpression:         "parenthesized_expression",
	KindTernaryExpression:               "ternary_expression",
	KindFieldAccess:                     "field_access",
	KindScopeAccess:                     "scope_access",
	KindUnaryExpression:                 "unary_expression",
	KindBinaryExpression:                "binary_expression",
	KindUpdateExpression:                "update_expression",
	KindSizeofExpression:                "sizeof_expression",
	KindViewAs:                          "view_as",
	KindNewExpression:                   "new_expression",
	KindArrayLiteral:                    "array_literal",
	KindIdentifier:                      "identifier",
	KindBuiltinType:                     "builtin_type",
	KindArrayType:                       "array_type",
	KindVisibility:                      "visibility",
	KindIntLiteral:                      "int_literal",
	KindFloatLiteral:                    "float_literal",
	KindCharLiteral:                     "char_literal",
	KindStringLiteral:                   "string_literal",
	KindBoolLiteral:                     "bool_literal",
	KindNull:                            "null",
	KindThis:                            "this",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}
